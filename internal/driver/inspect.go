package driver

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"texify/internal/config"
	"texify/internal/diag"
	"texify/internal/inspect"
	"texify/internal/latex"
	"texify/internal/observ"
	"texify/internal/rules"
	"texify/internal/source"
	"texify/internal/version"
)

// Extensions lists the file kinds a directory run inspects.
var Extensions = []string{".tex", ".sty", ".cls"}

// Options configures an inspection run. The zero value inspects with the
// default configuration and every built-in rule.
type Options struct {
	Config *config.Config
	// Rules overrides the rule set built from Config.
	Rules []*inspect.Rule
	// Mode overrides Config.Inspect.Mode when non-nil.
	Mode *inspect.Mode
	// MaxDiagnostics overrides Config.Inspect.MaxDiagnostics when positive.
	MaxDiagnostics int
	// Jobs overrides Config.Inspect.Jobs when positive.
	Jobs     int
	Cache    *DiskCache
	Logger   hclog.Logger
	Progress ProgressSink
	// Timings records per-file phase durations in Result.Timer.
	Timings bool
}

// Result is the outcome of inspecting one file.
type Result struct {
	Path   string
	FileID source.FileID
	Bag    *diag.Bag
	Cached bool
	Timer  *observ.Timer
	// Err is set when the file could not be loaded; Bag is then empty.
	Err error
}

type prepared struct {
	cfg        *config.Config
	rules      []*inspect.Rule
	mode       inspect.Mode
	max        int
	jobs       int
	cache      *DiskCache
	configHash string
	log        hclog.Logger
	progress   ProgressSink
	timings    bool
}

// ModeFromConfig maps the texify.toml mode name onto an engine mode.
func ModeFromConfig(name string) inspect.Mode {
	if name == config.ModeWholeBuffer {
		return inspect.WholeBuffer
	}
	return inspect.PerMatch
}

func prepare(opts Options) (*prepared, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	p := &prepared{
		cfg:      cfg,
		rules:    opts.Rules,
		mode:     ModeFromConfig(cfg.Inspect.Mode),
		max:      cfg.Inspect.MaxDiagnostics,
		jobs:     cfg.Inspect.Jobs,
		log:      opts.Logger,
		progress: opts.Progress,
		timings:  opts.Timings,
	}
	if p.log == nil {
		p.log = hclog.NewNullLogger()
	}
	if opts.Mode != nil {
		p.mode = *opts.Mode
	}
	if opts.MaxDiagnostics > 0 {
		p.max = opts.MaxDiagnostics
	}
	if opts.Jobs > 0 {
		p.jobs = opts.Jobs
	}
	if p.jobs <= 0 {
		p.jobs = runtime.GOMAXPROCS(0)
	}
	if p.rules == nil {
		reg, err := rules.Builtin(cfg)
		if err != nil {
			return nil, fmt.Errorf("build rules: %w", err)
		}
		if err := reg.CheckConfig(cfg); err != nil {
			p.log.Warn("configuration names unknown rules", "error", err)
		}
		p.rules = reg.Enabled(cfg)
	}
	// Caller-supplied rules may carry hooks the config hash cannot see.
	if opts.Cache != nil && cfg.Inspect.Cache && opts.Rules == nil {
		p.cache = opts.Cache
		p.configHash = cfg.Hash()
	}
	return p, nil
}

// InspectFile loads path into fileSet and inspects it.
func InspectFile(ctx context.Context, fileSet *source.FileSet, path string, opts Options) (Result, error) {
	p, err := prepare(opts)
	if err != nil {
		return Result{}, err
	}
	id, err := loadFile(fileSet, path, p)
	if err != nil {
		return Result{Path: path, Bag: diag.NewBag(p.max), Err: err}, err
	}
	return inspectLoaded(ctx, fileSet.Get(id), p)
}

// InspectSource inspects in-memory content registered as a virtual file.
func InspectSource(ctx context.Context, fileSet *source.FileSet, name string, content []byte, opts Options) (Result, error) {
	p, err := prepare(opts)
	if err != nil {
		return Result{}, err
	}
	id := fileSet.AddVirtual(name, content)
	return inspectLoaded(ctx, fileSet.Get(id), p)
}

// InspectDir inspects every *.tex, *.sty and *.cls file below dir in
// parallel, bounded by the configured number of jobs. Results are ordered
// by path. Files that fail to load are reported through Result.Err.
func InspectDir(ctx context.Context, dir string, opts Options) (*source.FileSet, []Result, error) {
	p, err := prepare(opts)
	if err != nil {
		return nil, nil, err
	}
	files, err := ListFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	fileSet := source.NewFileSetWithBase(dir)
	if len(files) == 0 {
		return fileSet, nil, nil
	}

	for _, path := range files {
		emit(p.progress, Event{File: path, Stage: StageLoad, Status: StatusQueued})
	}

	// FileSet is not safe for concurrent writes, so loading stays sequential.
	fileIDs := make(map[string]source.FileID, len(files))
	loadErrors := make(map[string]error)
	for _, path := range files {
		id, err := loadFile(fileSet, path, p)
		if err != nil {
			loadErrors[path] = err
			continue
		}
		fileIDs[path] = id
	}

	results := make([]Result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(p.jobs, len(files)))

	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			if loadErr, failed := loadErrors[path]; failed {
				// index i is owned by this goroutine
				results[i] = Result{Path: path, Bag: diag.NewBag(p.max), Err: loadErr}
				return nil
			}
			res, err := inspectLoaded(gctx, fileSet.Get(fileIDs[path]), p)
			results[i] = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return fileSet, results, err
	}
	return fileSet, results, nil
}

// ListFiles returns the sorted inspectable files below dir, skipping hidden
// directories.
func ListFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if slices.Contains(Extensions, strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

func loadFile(fileSet *source.FileSet, path string, p *prepared) (source.FileID, error) {
	emit(p.progress, Event{File: path, Stage: StageLoad, Status: StatusWorking})
	id, err := fileSet.LoadEncoded(path, p.cfg.Inspect.Encoding)
	if err != nil {
		err = fmt.Errorf("load %s: %w", path, err)
		p.log.Error("failed to load file", "path", path, "error", err)
		emit(p.progress, Event{File: path, Stage: StageLoad, Status: StatusError, Err: err})
		return 0, err
	}
	return id, nil
}

func inspectLoaded(ctx context.Context, file *source.File, p *prepared) (Result, error) {
	res := Result{Path: file.Path, FileID: file.ID, Bag: diag.NewBag(p.max)}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	started := time.Now()
	timer := observ.NewTimer()
	if p.timings {
		res.Timer = timer
	}
	log := p.log.With("path", file.Path)

	var key Digest
	if p.cache != nil {
		key = CacheKey(file.Hash, p.configHash, version.Version, p.mode.String(), filepath.Ext(file.Path))
		idx := timer.Begin("cache")
		var payload DiskPayload
		hit, err := p.cache.Get(key, &payload)
		timer.End(idx, "")
		if err != nil {
			log.Warn("cache read failed", "error", err)
		}
		if hit {
			for _, d := range payloadToDiagnostics(&payload, file.ID) {
				res.Bag.Add(d)
			}
			res.Cached = true
			log.Debug("diagnostics served from cache", "count", res.Bag.Len())
			emit(p.progress, Event{File: file.Path, Stage: StageInspect, Status: StatusCached, Elapsed: time.Since(started), Problems: res.Bag.Len()})
			return res, nil
		}
	}

	emit(p.progress, Event{File: file.Path, Stage: StageParse, Status: StatusWorking})
	idx := timer.Begin("parse")
	tree := latex.Parse(file.Content)
	timer.End(idx, fmt.Sprintf("%d nodes", len(tree.Nodes())))

	emit(p.progress, Event{File: file.Path, Stage: StageInspect, Status: StatusWorking})
	idx = timer.Begin("inspect")
	perRule := make(map[string]int)
	reporter := diag.MultiReporter{
		diag.NewDedupReporter(diag.BagReporter{Bag: res.Bag}),
		diag.ReporterFunc(func(d diag.Diagnostic) { perRule[d.Rule]++ }),
	}
	n := inspect.Run(file, tree, p.rules, p.mode, reporter)
	timer.End(idx, fmt.Sprintf("%d rules", len(p.rules)))
	res.Bag.Sort()

	log.Debug("inspected", "rules", len(p.rules), "mode", p.mode.String(), "reported", n, "kept", res.Bag.Len(), "by_rule", perRule)

	// A truncated bag would poison later runs with a different limit.
	if p.cache != nil && (p.max <= 0 || res.Bag.Len() < p.max) {
		if err := p.cache.Put(key, diagnosticsToPayload(file.Path, res.Bag.Items())); err != nil {
			log.Warn("cache write failed", "error", err)
		}
	}

	emit(p.progress, Event{File: file.Path, Stage: StageInspect, Status: StatusDone, Elapsed: time.Since(started), Problems: res.Bag.Len()})
	return res, nil
}

// Diagnostics flattens the diagnostics of every result in order.
func Diagnostics(results []Result) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, r := range results {
		if r.Bag != nil {
			out = append(out, r.Bag.Items()...)
		}
	}
	return out
}
