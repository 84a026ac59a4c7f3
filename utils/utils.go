package utils

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var HomeDir string

func init() {
	var err error
	HomeDir, err = os.UserHomeDir()
	if err != nil {
		log.Fatal("failed to get $HOME value")
	}
}

func DefaultOpenfillDirectory() string {
	return filepath.Join(HomeDir, ".openfill")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultOpenfillDirectory(), "config.json")
}

func DefaultStorePath() string {
	return filepath.Join(DefaultOpenfillDirectory(), "data.db")
}

type Config struct {
	ChainID     uint64          `json:"chainId"`
	DB          string          `json:"db"`
	Redis       string          `json:"redis"`
	RPCServer   string          `json:"rpcServer"`
	RpcUserName string          `json:"rpcUserName"`
	RpcPassword string          `json:"rpcPassword"`
	Schemas     json.RawMessage `json:"schemas"`
}

// LoadConfigFromFile reads the daemon config, a missing or unreadable file
// yields the zero config and the caller's env overrides take over.
func LoadConfigFromFile(file string) Config {
	config := Config{}
	configFile, err := os.ReadFile(file)
	if err != nil {
		return config
	}
	json.Unmarshal(configFile, &config)
	return config
}

// Dialector picks the ledger database from the db string. A postgres URL
// selects postgres, anything else is a sqlite path, empty falls back to the
// default store location.
func Dialector(db string) gorm.Dialector {
	if strings.HasPrefix(db, "postgres://") || strings.HasPrefix(db, "postgresql://") {
		return postgres.Open(db)
	}
	if db != "" {
		return sqlite.Open(db)
	}
	return sqlite.Open(DefaultStorePath())
}
