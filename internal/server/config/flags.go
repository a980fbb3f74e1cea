package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/uploadvault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-m string   upload mode ("direct" or "proxy")
//	-n string   storage namespace (folder prefix)
//	-k string   storage public credential id
//	-x string   storage signing secret
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l string   local upload directory (proxy mode without S3)
//	-q string   Redis address; enables rate limiting when set
//	-z int      rate limit, requests per minute per client
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-r", "-m", "-n", "-k", "-x", "-u", "-p", "-b", "-g", "-e", "-l", "-q", "-z"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.UploadMode, "m", config.UploadMode, "upload mode (direct or proxy)")
	fs.StringVar(&config.StorageNamespace, "n", config.StorageNamespace, "storage namespace")
	fs.StringVar(&config.StorageAPIKey, "k", config.StorageAPIKey, "storage public credential id")
	fs.StringVar(&config.StorageAPISecret, "x", config.StorageAPISecret, "storage signing secret")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.LocalUploadDir, "l", config.LocalUploadDir, "local upload directory")
	fs.StringVar(&config.RedisAddr, "q", config.RedisAddr, "Redis address for rate limiting")
	fs.IntVar(&config.RateLimitPerMinute, "z", config.RateLimitPerMinute, "rate limit, requests per minute")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}
