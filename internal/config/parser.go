package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

//go:embed defaults.lua
var defaultsLua string

// Parser evaluates the embedded defaults and an optional user config.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new config parser with the given platform detector.
// A nil detector skips the platform table.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// Defaults returns the pinned configuration with no user overrides.
func (p *Parser) Defaults(ctx context.Context) (*Config, error) {
	return p.ParseString(ctx, "")
}

// ParseFile evaluates the user config at path on top of the defaults.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("read config: %s is a directory", path)
	}
	if info.Size() > MaxConfigSize {
		return nil, fmt.Errorf("read config: %s is %d bytes (limit %d)", path, info.Size(), MaxConfigSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := p.ParseString(ctx, string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseString evaluates luaCode on top of the defaults. An empty string
// yields the defaults unchanged.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultParseTimeout)
		defer cancel()
	}

	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(defaultsLua); err != nil {
		return nil, &ParseError{
			Message: "embedded defaults failed to load",
			Detail:  err.Error(),
		}
	}

	if strings.TrimSpace(luaCode) != "" {
		if err := L.DoString(luaCode); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, &ParseError{
					Message: "config evaluation aborted",
					Detail:  ctxErr.Error(),
				}
			}
			return nil, &ParseError{
				Message: "Lua error",
				Detail:  err.Error(),
			}
		}
	}

	return extractConfig(L)
}

// Path returns the config file to load: the explicit flag value, then
// $SDKFETCH_CONFIG, then "" for defaults only.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(EnvConfigPath)
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig reads the global sdk table into a Config and validates it.
func extractConfig(L *lua.LState) (*Config, error) {
	sdkVal := L.GetGlobal(luaGlobalSDK)
	sdk, ok := sdkVal.(*lua.LTable)
	if !ok {
		return nil, &ParseError{
			Message: "missing or invalid 'sdk' table",
			Detail:  fmt.Sprintf("expected table, got %s", sdkVal.Type()),
		}
	}

	cfg := &Config{
		Install: Install{
			Dest:         DefaultDest,
			MaxRedirects: DefaultMaxRedirects,
			Timeout:      DefaultTimeout,
		},
	}

	r := &tableReader{}
	r.str(sdk, luaGlobalSDK, luaFieldVersion, &cfg.Version)
	r.str(sdk, luaGlobalSDK, luaFieldBaseURL, &cfg.BaseURL)
	cfg.Platforms = r.strMap(sdk, luaGlobalSDK, luaFieldPlatforms)
	cfg.Checksums = r.strMap(sdk, luaGlobalSDK, luaFieldChecksums)

	if t := r.table(sdk, luaGlobalSDK, luaFieldInstall); t != nil {
		const path = luaGlobalSDK + "." + luaFieldInstall
		r.str(t, path, luaFieldDest, &cfg.Install.Dest)
		cfg.Install.Prune = r.strList(t, path, luaFieldPrune)
		r.integer(t, path, luaFieldMaxRedirects, &cfg.Install.MaxRedirects)
		r.seconds(t, path, luaFieldTimeout, &cfg.Install.Timeout)
		r.integer(t, path, luaFieldRetries, &cfg.Install.Retries)
		r.boolean(t, path, luaFieldStaged, &cfg.Install.Staged)
	}

	if t := r.table(sdk, luaGlobalSDK, luaFieldSignature); t != nil {
		const path = luaGlobalSDK + "." + luaFieldSignature
		r.str(t, path, luaFieldKeyring, &cfg.Signature.Keyring)
		r.str(t, path, luaFieldSuffix, &cfg.Signature.Suffix)
	}

	if t := r.table(sdk, luaGlobalSDK, luaFieldBundle); t != nil {
		const path = luaGlobalSDK + "." + luaFieldBundle
		r.str(t, path, luaFieldSuffix, &cfg.Bundle.Suffix)
		r.str(t, path, luaFieldIssuer, &cfg.Bundle.Issuer)
		r.str(t, path, luaFieldIdentity, &cfg.Bundle.Identity)
		r.str(t, path, luaFieldTrustedRoot, &cfg.Bundle.TrustedRoot)
	}

	if r.err != nil {
		return nil, &ParseError{
			Message: "invalid config value",
			Detail:  r.err.Error(),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ParseError{
			Message: "config validation failed",
			Detail:  err.Error(),
		}
	}

	return cfg, nil
}

// tableReader copies typed fields out of Lua tables, keeping the first type
// error. Absent (nil) fields leave the destination untouched.
type tableReader struct {
	err error
}

func (r *tableReader) fail(path, name, want string, got lua.LValue) {
	if r.err == nil {
		r.err = fmt.Errorf("%s.%s: expected %s, got %s", path, name, want, got.Type())
	}
}

func (r *tableReader) table(t *lua.LTable, path, name string) *lua.LTable {
	v := t.RawGetString(name)
	if v == lua.LNil {
		return nil
	}
	tbl, ok := v.(*lua.LTable)
	if !ok {
		r.fail(path, name, "table", v)
		return nil
	}
	return tbl
}

func (r *tableReader) str(t *lua.LTable, path, name string, dst *string) {
	v := t.RawGetString(name)
	switch v.Type() {
	case lua.LTNil:
	case lua.LTString:
		*dst = v.String()
	default:
		r.fail(path, name, "string", v)
	}
}

func (r *tableReader) boolean(t *lua.LTable, path, name string, dst *bool) {
	v := t.RawGetString(name)
	switch v.Type() {
	case lua.LTNil:
	case lua.LTBool:
		*dst = bool(v.(lua.LBool))
	default:
		r.fail(path, name, "boolean", v)
	}
}

func (r *tableReader) integer(t *lua.LTable, path, name string, dst *int) {
	v := t.RawGetString(name)
	switch v.Type() {
	case lua.LTNil:
	case lua.LTNumber:
		n := float64(v.(lua.LNumber))
		if n != float64(int(n)) {
			r.fail(path, name, "integer", v)
			return
		}
		*dst = int(n)
	default:
		r.fail(path, name, "number", v)
	}
}

// seconds reads a number of seconds, fractional values allowed.
func (r *tableReader) seconds(t *lua.LTable, path, name string, dst *time.Duration) {
	v := t.RawGetString(name)
	switch v.Type() {
	case lua.LTNil:
	case lua.LTNumber:
		*dst = time.Duration(float64(v.(lua.LNumber)) * float64(time.Second))
	default:
		r.fail(path, name, "number of seconds", v)
	}
}

func (r *tableReader) strMap(t *lua.LTable, path, name string) map[string]string {
	tbl := r.table(t, path, name)
	if tbl == nil {
		return nil
	}

	out := make(map[string]string)
	tbl.ForEach(func(key, value lua.LValue) {
		if key.Type() != lua.LTString {
			r.fail(path+"."+name, key.String(), "string key", key)
			return
		}
		if value.Type() != lua.LTString {
			r.fail(path+"."+name, key.String(), "string", value)
			return
		}
		out[key.String()] = value.String()
	})
	return out
}

// strList reads an array of strings in order. Non-string entries are
// rejected; a list written with platform.when may leave holes, which are
// skipped.
func (r *tableReader) strList(t *lua.LTable, path, name string) []string {
	tbl := r.table(t, path, name)
	if tbl == nil {
		return nil
	}

	out := []string{}
	tbl.ForEach(func(key, value lua.LValue) {
		if key.Type() != lua.LTNumber {
			return
		}
		if value.Type() != lua.LTString {
			r.fail(path, name, "list of strings", value)
			return
		}
		out = append(out, value.String())
	})
	return out
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		return err.Error()
	}
	if verbose {
		return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
	}
	detail := parseErr.Detail
	if idx := strings.Index(detail, "stack traceback"); idx > 0 {
		detail = strings.TrimSpace(detail[:idx])
	}
	return fmt.Sprintf("%s: %s", parseErr.Message, detail)
}
