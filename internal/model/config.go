package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/encoding/yaml"
	"github.com/creasty/defaults"

	_ "embed"
)

const (
	ServiceModeManual = "manual"
	ServiceModeTimer  = "timer"
	ServiceModeServer = "server"

	LogStderr  = "stderr"
	LogStdout  = "stdout"
	LogDiscard = "discard"

	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Config is the whole folderstats configuration
type Config struct {
	Version int     `json:"version" yaml:"version"` // fixed 0 for now
	Scan    Scan    `json:"scan" yaml:"scan"`
	Service Service `json:"service" yaml:"service"`
	Output  Output  `json:"output" yaml:"output"`
}

// Scan settings.
type Scan struct {
	Root           string   `json:"root,omitempty" yaml:"root,omitempty"` // empty => use CWD
	Exclude        []string `json:"exclude,omitempty" yaml:"exclude,omitempty" default:"[\"$RECYCLE.BIN\",\"System Volume Information\"]" expand:"false"`
	Workers        int      `json:"workers" yaml:"workers"` // 0 => runtime.NumCPU
	TextExtensions []string `json:"text_extensions,omitempty" yaml:"text_extensions,omitempty" default:"[\".txt\",\".md\",\".csv\",\".log\"]"`
}

// Service configuration
type Service struct {
	Mode     string    `json:"mode" yaml:"mode" default:"manual"` // must be "manual", "timer" or "server"
	Verbose  bool      `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	Log      string    `json:"log,omitempty" yaml:"log,omitempty" default:"stderr"` // "stderr"|"stdout"|"discard"|path
	Schedule *Schedule `json:"schedule,omitempty" yaml:"schedule,omitempty"`      // only for mode timer
	Server   Server    `json:"server" yaml:"server"`                              // only for mode server
}

// Schedule defines how often a timer mode rescans. Cron has a precedence.
type Schedule struct {
	Cron     string `json:"cron,omitempty" yaml:"cron,omitempty"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"` // Go duration, e.g. 15m
}

// Server is the HTTP API listener configuration.
type Server struct {
	Addr string `json:"addr" yaml:"addr" default:"localhost:8080"`
}

// Output controls how results are reported.
type Output struct {
	Format string `json:"format" yaml:"format" default:"text"`
	Depth  int    `json:"depth" yaml:"depth" default:"1"`     // directory levels below the root to report
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"` // one report file per finished scan
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		// default tags are static, so this is a programmer's mistake
		panic(err)
	}
	return cfg
}

//go:embed config.cue
var cueSource []byte

var (
	cueCtx    *cue.Context
	cueConfig cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	cueConfig = compiled.LookupPath(cue.ParsePath("#Config"))
	if cueConfig.Err() != nil {
		panic(cueConfig.Err())
	}
	if err := cueConfig.Validate(); err != nil {
		panic(err)
	}
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
// Missing values are filled from the defaults and ${ENV} references are
// expanded.
// NOT SAFE for multiple goroutines
// Return CueError in a case validation phase fails
func LoadConfig(r io.Reader) (Config, error) {
	var ret Config
	if err := loadConfig1(r, &ret, cueConfig); err != nil {
		return ret, err
	}
	return ret, nil
}

// LoadConfigFromPath is LoadConfig for a file, "-" reads stdin.
func LoadConfigFromPath(path string) (Config, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("error opening config file: %w", err)
		}
		r = f
		defer func() {
			err := f.Close()
			if err != nil {
				slog.Error("can't close config file", "path", path, "error", err)
			}
		}()
	}

	cfg, err := LoadConfig(r)
	if err != nil {
		var cuerr CueError
		if errors.As(err, &cuerr) {
			for _, d := range cuerr.Details() {
				slog.Error("validation error", d.Attr("detail"))
			}
		}
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func loadConfig1(r io.Reader, pt *Config, schema cue.Value) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	r = bytes.NewReader(b)

	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return CueError{cuerr: err}
	}

	if err := unified.Decode(pt); err != nil {
		return err
	}

	expandEnvValue(reflect.ValueOf(pt).Elem())
	if err := defaults.Set(pt); err != nil {
		return fmt.Errorf("applying defaults: %w", err)
	}
	return nil
}

// expandEnvValue expands ${VAR} in every settable string, except fields
// tagged expand:"false" whose values legitimately contain a dollar sign.
func expandEnvValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	switch v.Kind() {
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if t.Field(i).Tag.Get("expand") == "false" {
				continue
			}
			if f := v.Field(i); f.CanSet() {
				expandEnvValue(f)
			}
		}
	case reflect.Pointer:
		if !v.IsNil() {
			expandEnvValue(v.Elem())
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			expandEnvValue(v.Index(i))
		}
	default:
		// other kinds ignored
	}
}

// CueError provides more user friendly validation errors on top of
// those generated by cuelang itself
type CueError struct {
	cuerr error
}

// Error implements error interface, returns the string content of underlying
// cue error
func (e CueError) Error() string {
	return e.cuerr.Error()
}

// Unwrap allows one to get the original error via errors.As
func (e CueError) Unwrap() error {
	return e.cuerr
}

// Details splits the cue error into one entry per offending config path.
func (e CueError) Details() []CueErrorDetail {
	errs := cueerrors.Errors(e.cuerr)
	ret := make([]CueErrorDetail, 0, len(errs))
	for _, err := range errs {
		format, args := err.Msg()
		ret = append(ret, CueErrorDetail{
			Path:    strings.Join(err.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	return ret
}

// CueErrorDetail is one validation failure.
type CueErrorDetail struct {
	Path    string
	Message string
}

func (d CueErrorDetail) String() string {
	if d.Path == "" {
		return d.Message
	}
	return d.Path + ": " + d.Message
}

// Attr returns the detail as a slog group under key.
func (d CueErrorDetail) Attr(key string) slog.Attr {
	return slog.Group(key,
		slog.String("path", d.Path),
		slog.String("message", d.Message),
	)
}
