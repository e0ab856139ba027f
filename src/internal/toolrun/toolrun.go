// Package toolrun runs an external tool on the data of a pathset, and records where the tool
// wrote its output in a new pathset.
//
// The tool is called as
//
//	executable [args...] input_path... output_path
//
// where the input paths are the entries of the input pathset and output_path is a directory
// generated next to the output pathset file (or under an explicit output directory).
package toolrun

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/crs4/hadoop-galaxy/src/internal/cmdutil"
	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/pathset"
)

// OutputDirName is the directory created next to the output pathset to hold the tool's data,
// when no output directory is given.
const OutputDirName = "hadoop_output"

// Config is the YAML configuration of a tool run.  Unknown keys are ignored.
type Config struct {
	HadoopHome    string            `yaml:"HADOOP_HOME"`
	HadoopConfDir string            `yaml:"HADOOP_CONF_DIR"`
	ToolEnv       map[string]string `yaml:"tool_env"`
}

// ReadConfig parses a configuration.
func ReadConfig(r io.Reader) (*Config, error) {
	var c Config
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return &c, nil
		}
		return nil, errors.Wrap(err, "parse tool configuration")
	}
	return &c, nil
}

// LoadConfig reads the configuration file at name.
func LoadConfig(name string) (_ *Config, retErr error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.EnsureStack(err)
	}
	defer errors.Close(&retErr, f, "close %s", name)
	return ReadConfig(f)
}

// Environ returns base with the Hadoop settings and then tool_env applied on top.  The result is
// sorted.
func (c *Config) Environ(base []string) []string {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		k, v, _ := strings.Cut(kv, "=")
		env[k] = v
	}
	if c != nil {
		if c.HadoopHome != "" {
			env["HADOOP_HOME"] = c.HadoopHome
		}
		if c.HadoopConfDir != "" {
			env["HADOOP_CONF_DIR"] = c.HadoopConfDir
		}
		for k, v := range c.ToolEnv {
			env[k] = v
		}
	}
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

func lookupEnv(environ []string, key string) string {
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v
		}
	}
	return ""
}

// FindExecutable returns the full path of name, searching the PATH of environ if name is not
// absolute.
func FindExecutable(name string, environ []string) (string, error) {
	isExec := func(p string) bool {
		fi, err := os.Stat(p)
		return err == nil && !fi.IsDir() && fi.Mode()&0o111 != 0
	}
	if filepath.IsAbs(name) {
		if !isExec(name) {
			return "", errors.Errorf("%s is not an executable", name)
		}
		return name, nil
	}
	path := lookupEnv(environ, "PATH")
	for _, dir := range filepath.SplitList(path) {
		if p := filepath.Join(dir, name); isExec(p) {
			return p, nil
		}
	}
	return "", errors.Errorf("the tool %s either isn't in the PATH or isn't executable; PATH: %s", name, path)
}

// OutputPath is where the tool writes its data: outputDir, or the OutputDirName directory next
// to the output pathset file, joined with name, or with the base name of the pathset file if
// name is empty.
func OutputPath(outputPathset, outputDir, name string) (string, error) {
	if name == "" {
		name = filepath.Base(outputPathset)
	}
	if outputDir == "" {
		dir, err := filepath.Abs(filepath.Dir(outputPathset))
		if err != nil {
			return "", errors.EnsureStack(err)
		}
		outputDir = filepath.Join(dir, OutputDirName)
	}
	dir, err := fsutil.Sanitize(outputDir)
	if err != nil {
		return "", err
	}
	return fsutil.Join(dir, name)
}

// Runner runs one tool.
type Runner struct {
	Executable string
	// Args are passed before the input paths.
	Args   []string
	Config *Config
	Stdout io.Writer
	Stderr io.Writer
}

// Run runs the tool on the entries of input, with its output at outputURI, and writes a pathset
// holding outputURI to outputPathset.  Anything already at outputURI is removed first.
func (r *Runner) Run(ctx context.Context, f fsutil.FS, input *pathset.Pathset, outputURI, outputPathset string) (retErr error) {
	ctx, end := log.SpanContextL(ctx, "runTool", log.InfoLevel, zap.String("executable", r.Executable), log.URI("output", outputURI))
	defer end(log.Errorp(&retErr))
	environ := r.Config.Environ(os.Environ())
	for _, kv := range environ {
		if strings.HasPrefix(kv, "HADOOP") {
			log.Info(ctx, "hadoop setting", zap.String("env", kv))
		}
	}
	exe, err := FindExecutable(r.Executable, environ)
	if err != nil {
		return err
	}
	log.Debug(ctx, "found tool", zap.String("path", exe))
	out, err := pathset.New(outputURI)
	if err != nil {
		return err
	}
	if err := f.Remove(ctx, outputURI, true); err != nil {
		log.Warn(ctx, "could not remove output path", log.URI("output", outputURI), zap.Error(err))
	}
	parent := fsutil.MustParseURI(outputURI).Dir().String()
	if err := f.Mkdir(ctx, parent); err != nil {
		return errors.Wrapf(err, "create %s", parent)
	}
	args := append([]string{exe}, r.Args...)
	args = append(args, input.Paths()...)
	args = append(args, outputURI)
	log.Info(ctx, "executing command", zap.Strings("args", args))
	if err := cmdutil.RunIO(ctx, cmdutil.IO{Stdout: r.Stdout, Stderr: r.Stderr, Environ: environ}, args...); err != nil {
		if code := cmdutil.ExitCode(err); code >= 0 {
			return errors.Wrapf(err, "%s exit code: %d", r.Executable, code)
		}
		return errors.Wrapf(err, "%s did not complete", r.Executable)
	}
	return out.WriteFile(outputPathset)
}
