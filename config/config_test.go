package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "canteen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
jwt_ttl: 2h
database:
  driver: sqlite
  dsn: "file::memory:"
canteen:
  open: false
  student_discount: 0.1
  low_stock_threshold: 3
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("CANTEEN_ANNOUNCEMENT", "Closed for exams")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "file::memory:", cfg.Database.DSN)
	assert.False(t, cfg.Canteen.Open)
	assert.Equal(t, 0.1, cfg.Canteen.StudentDiscount)
	assert.Equal(t, 3, cfg.Canteen.LowStockThreshold)
	assert.Equal(t, "Closed for exams", cfg.Canteen.Announcement)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Canteen.StudentDiscount = 1.5
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Canteen.StudentDiscount = math.NaN()
	assert.Error(t, cfg.Validate())

	assert.NoError(t, Default().Validate())
}

func TestInitDBSqlite(t *testing.T) {
	db, err := InitDB(DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)

	_, err = InitDB(DatabaseConfig{Driver: "nope", DSN: "x"})
	assert.Error(t, err)
}
