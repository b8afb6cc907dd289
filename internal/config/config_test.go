package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cpmech/gosl/chk"

	"Trestle/internal/calc/solver"
)

func Test_config01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("config01. defaults without a file")

	tst.Chdir(tst.TempDir())
	cfg, err := Load("")
	if err != nil {
		tst.Fatalf("load: %v", err)
	}
	chk.String(tst, cfg.Server.Addr, ":8443")
	chk.String(tst, cfg.Logging.Level, "info")
	chk.Int(tst, "subdivisions", cfg.Analysis.Subdivisions, 4)
	chk.Float64(tst, "tolerance", 0, cfg.Analysis.PivotTolerance, solver.DefaultPivotTolerance)
	if cfg.Auth.TokenTTL != 30*24*time.Hour {
		tst.Errorf("token ttl %v", cfg.Auth.TokenTTL)
	}
	if cfg.Server.TLS() {
		tst.Errorf("tls enabled without certificates")
	}
}

func Test_config02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("config02. file and environment")

	dir := tst.TempDir()
	path := filepath.Join(dir, "trestle.yaml")
	data := `
server:
  addr: ":9000"
  cert_file: server.crt
  key_file: server.key
analysis:
  subdivisions: 2
  auto_repair: true
  max_repair_iterations: 5
auth:
  token_ttl: 48h
logging:
  format: json
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		tst.Fatal(err)
	}
	tst.Setenv("TRESTLE_LOGGING_LEVEL", "debug")
	tst.Setenv("DATABASE_URL", "postgres://localhost/trestle")
	tst.Setenv("TRESTLE_AUTH_TOKEN_KEY", "secret")

	cfg, err := Load(path)
	if err != nil {
		tst.Fatalf("load: %v", err)
	}
	chk.String(tst, cfg.Server.Addr, ":9000")
	chk.String(tst, cfg.Logging.Format, "json")
	chk.String(tst, cfg.Logging.Level, "debug")
	chk.String(tst, cfg.Database.URL, "postgres://localhost/trestle")
	chk.String(tst, cfg.Auth.TokenKey, "secret")
	if !cfg.Server.TLS() {
		tst.Errorf("tls not enabled")
	}
	if cfg.Auth.TokenTTL != 48*time.Hour {
		tst.Errorf("token ttl %v", cfg.Auth.TokenTTL)
	}

	o := cfg.Analysis.Workspace()
	chk.Int(tst, "subdivisions", o.Analysis.Loads.Subdivisions, 2)
	chk.Int(tst, "iterations", o.MaxRepairIterations, 5)
	if !o.AutoRepair {
		tst.Errorf("auto repair not carried")
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		tst.Errorf("missing explicit file accepted")
	}
}
