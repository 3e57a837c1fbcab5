package config

import "time"

// Lua schema field names and globals
const (
	luaGlobalSDK         = "sdk"
	luaFieldVersion      = "version"
	luaFieldBaseURL      = "base_url"
	luaFieldPlatforms    = "platforms"
	luaFieldChecksums    = "checksums"
	luaFieldInstall      = "install"
	luaFieldDest         = "dest"
	luaFieldPrune        = "prune"
	luaFieldMaxRedirects = "max_redirects"
	luaFieldTimeout      = "timeout"
	luaFieldRetries      = "retries"
	luaFieldStaged       = "staged"
	luaFieldSignature    = "signature"
	luaFieldKeyring      = "keyring"
	luaFieldSuffix       = "suffix"
	luaFieldBundle       = "bundle"
	luaFieldIssuer       = "issuer"
	luaFieldIdentity     = "identity"
	luaFieldTrustedRoot  = "trusted_root"
)

const (
	// MaxConfigSize bounds the user config file read from disk.
	MaxConfigSize = 1 << 20

	// DefaultParseTimeout bounds Lua evaluation when the caller's context has
	// no deadline.
	DefaultParseTimeout = 5 * time.Second

	// DefaultMaxRedirects is used when the config leaves max_redirects unset.
	DefaultMaxRedirects = 5

	// DefaultTimeout is the per-hop download timeout.
	DefaultTimeout = 5 * time.Minute

	// DefaultDest is the destination directory relative to the working dir.
	DefaultDest = "sdk"

	// EnvConfigPath names the environment variable holding a config path.
	EnvConfigPath = "SDKFETCH_CONFIG"
)
