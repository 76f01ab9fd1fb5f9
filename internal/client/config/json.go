package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/vaultdrop/internal/flagx"
	"github.com/dmitrijs2005/vaultdrop/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations may
// be strings like "90s" or integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	LocalDBPath        string         `json:"local_db_path"`
	UploadConcurrency  int            `json:"upload_concurrency"`
	TransferTimeout    timex.Duration `json:"transfer_timeout"`
}

// parseJson overlays Config with values loaded from the file named by -c or
// -config. Zero values in the file keep the current setting. Read or
// unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.LocalDBPath != "" {
		cfg.LocalDBPath = jc.LocalDBPath
	}
	if jc.UploadConcurrency > 0 {
		cfg.UploadConcurrency = jc.UploadConcurrency
	}
	if jc.TransferTimeout.Duration > 0 {
		cfg.TransferTimeout = jc.TransferTimeout.Duration
	}
}
