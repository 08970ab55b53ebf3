package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/xyproto/env/v2"
)

// buildEnvVars is the environment subset captured into a deterministic
// build configuration. SOURCE_DATE_EPOCH pins the build timestamp; LANG
// and TZ are recorded so an environment-sensitive artifact diff can be
// traced back to them.
var buildEnvVars = []string{"LANG", "SOURCE_DATE_EPOCH", "TZ"}

// BuildConfig pins everything outside the token stream that may
// influence the produced artifact. SourceHash is filled in by the
// compiler before each stage run.
type BuildConfig struct {
	Timestamp     int64 // seconds since epoch, 0 when unset
	SourceHash    string
	Env           map[string]string
	Deterministic bool
}

// NewBuildConfig captures the reproducibility-relevant environment and
// enables deterministic output.
func NewBuildConfig() *BuildConfig {
	cfg := &BuildConfig{
		Timestamp:     env.Int64("SOURCE_DATE_EPOCH", 0),
		Env:           make(map[string]string, len(buildEnvVars)),
		Deterministic: true,
	}
	for _, name := range buildEnvVars {
		cfg.Env[name] = env.Str(name)
	}
	return cfg
}

// BuildID hashes the canonical serialization of the configuration.
// Identical configurations always produce identical ids.
func (b *BuildConfig) BuildID() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "timestamp=%d\n", b.Timestamp)
	fmt.Fprintf(&sb, "source=%s\n", b.SourceHash)
	fmt.Fprintf(&sb, "deterministic=%t\n", b.Deterministic)

	names := make([]string, 0, len(b.Env))
	for n := range b.Env {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(&sb, "env.%s=%s\n", n, b.Env[n])
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
