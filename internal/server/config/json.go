package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/flagx"
	"github.com/dmitrijs2005/vaultdrop/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// both "90s" strings and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	PresignValidityDuration      timex.Duration `json:"presign_validity_duration"`
	PublicBaseURL                string         `json:"public_base_url"`
	AdminEmails                  []string       `json:"admin_emails"`
	RedisAddr                    string         `json:"redis_addr"`
	ReaperSchedule               *string        `json:"reaper_schedule"`
	AllowAnonymousUploads        *bool          `json:"allow_anonymous_uploads"`
	PasswordAttemptsPerMinute    *int           `json:"password_attempts_per_minute"`
	LogLevel                     string         `json:"log_level"`
	TrustedProxies               []string       `json:"trusted_proxies"`
}

// parseJson overlays the file named by -c/-config onto config. Keys absent
// from the file leave the current value alone. An unreadable or invalid file
// panics, as a half-applied config is worse than none.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setDuration(&config.PresignValidityDuration, c.PresignValidityDuration)
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	if c.AdminEmails != nil {
		config.AdminEmails = c.AdminEmails
	}
	setString(&config.RedisAddr, c.RedisAddr)
	if c.ReaperSchedule != nil {
		config.ReaperSchedule = *c.ReaperSchedule
	}
	if c.AllowAnonymousUploads != nil {
		config.AllowAnonymousUploads = *c.AllowAnonymousUploads
	}
	if c.PasswordAttemptsPerMinute != nil {
		config.PasswordAttemptsPerMinute = *c.PasswordAttemptsPerMinute
	}
	setString(&config.LogLevel, c.LogLevel)
	if c.TrustedProxies != nil {
		config.TrustedProxies = c.TrustedProxies
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
