package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/flagx"
)

var serverFlags = []string{
	"-a", "-l", "-d", "-s", "-t", "-r", "-u", "-p", "-b", "-g", "-e",
	"-w", "-o", "-m", "-x", "-k", "-n", "-q", "-v", "-y",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-l string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-w int      presigned URL validity, minutes
//	-o string   public base URL of share links
//	-m list     admin emails, comma separated or repeated
//	-x string   Redis address for click dedupe
//	-k string   reaper cron schedule, empty disables
//	-n bool     allow anonymous uploads (use -n=true)
//	-q int      password attempts per minute per client
//	-v string   log level
//	-y list     trusted proxy addresses or CIDRs, comma separated or repeated
//
// Duration flags are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "l", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidity := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	presignValidity := fs.Int("w", int(config.PresignValidityDuration.Minutes()), "presign_validity_duration (in minutes)")

	fs.StringVar(&config.PublicBaseURL, "o", config.PublicBaseURL, "public base URL")

	var admins flagx.StringList
	fs.Var(&admins, "m", "admin emails")

	fs.StringVar(&config.RedisAddr, "x", config.RedisAddr, "redis address")
	fs.StringVar(&config.ReaperSchedule, "k", config.ReaperSchedule, "reaper schedule")
	fs.BoolVar(&config.AllowAnonymousUploads, "n", config.AllowAnonymousUploads, "allow anonymous uploads")
	fs.IntVar(&config.PasswordAttemptsPerMinute, "q", config.PasswordAttemptsPerMinute, "password attempts per minute")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	var proxies flagx.StringList
	fs.Var(&proxies, "y", "trusted proxies")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidity) * time.Minute
	config.PresignValidityDuration = time.Duration(*presignValidity) * time.Minute
	if len(admins) > 0 {
		config.AdminEmails = admins
	}
	if len(proxies) > 0 {
		config.TrustedProxies = proxies
	}
}
