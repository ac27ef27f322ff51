package telemetry

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// defaultSampleRate applies to mutex and block profiles when they are
// requested without an explicit rate
const defaultSampleRate = 5

// ProfilerConfig configures continuous profiling with Pyroscope
type ProfilerConfig struct {
	Enabled           bool
	ServerAddress     string // e.g. "http://pyroscope:4040"
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
	Tags              map[string]string

	// ProfileTypes defaults to DefaultProfileTypes when empty
	ProfileTypes []pyroscope.ProfileType

	MutexProfileFraction int
	BlockProfileRate     int
	DisableGCRuns        bool
}

func (c ProfilerConfig) validate() error {
	var errs []error
	if c.ServerAddress == "" {
		errs = append(errs, errors.New("profiler server address is required"))
	}
	if c.ApplicationName == "" {
		errs = append(errs, errors.New("profiler application name is required"))
	}
	return errors.Join(errs...)
}

// DefaultProfileTypes covers CPU, heap and goroutines. Receipt rendering
// through headless Chrome is where most allocations happen.
var DefaultProfileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

// Profiler owns a running Pyroscope session. A disabled Profiler does nothing.
type Profiler struct {
	profiler *pyroscope.Profiler
	logger   *zap.Logger
	stop     sync.Once
	stopErr  error
}

// NewProfiler starts profiling when cfg.Enabled is set
func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{logger: logger}
	if !cfg.Enabled {
		logger.Info("Continuous profiling disabled")
		return p, nil
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	types := cfg.ProfileTypes
	if len(types) == 0 {
		types = DefaultProfileTypes
	}
	mutex, block := runtimeSampleRates(cfg, types)
	if mutex > 0 {
		runtime.SetMutexProfileFraction(mutex)
	}
	if block > 0 {
		runtime.SetBlockProfileRate(block)
	}

	session, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   cfg.ApplicationName,
		ServerAddress:     cfg.ServerAddress,
		BasicAuthUser:     cfg.BasicAuthUser,
		BasicAuthPassword: cfg.BasicAuthPassword,
		Logger:            pyroscopeLogger{logger.Named("pyroscope").Sugar()},
		Tags:              profileTags(cfg.Tags),
		ProfileTypes:      types,
		DisableGCRuns:     cfg.DisableGCRuns,
	})
	if err != nil {
		return nil, fmt.Errorf("start pyroscope: %w", err)
	}
	p.profiler = session

	logger.Info("Continuous profiling enabled",
		zap.String("server_address", cfg.ServerAddress),
		zap.Int("profile_types", len(types)),
		zap.Int("mutex_fraction", mutex),
		zap.Int("block_rate", block),
	)
	return p, nil
}

// runtimeSampleRates returns the mutex fraction and block rate the requested
// profile types need, zero for a profile that is not requested
func runtimeSampleRates(cfg ProfilerConfig, types []pyroscope.ProfileType) (mutex, block int) {
	for _, t := range types {
		switch t {
		case pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration:
			mutex = cfg.MutexProfileFraction
			if mutex <= 0 {
				mutex = defaultSampleRate
			}
		case pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration:
			block = cfg.BlockProfileRate
			if block <= 0 {
				block = defaultSampleRate
			}
		}
	}
	return mutex, block
}

// profileTags adds the host name to the configured tags
func profileTags(extra map[string]string) map[string]string {
	tags := maps.Clone(extra)
	if tags == nil {
		tags = make(map[string]string, 1)
	}
	if _, ok := tags["hostname"]; !ok {
		if host, err := os.Hostname(); err == nil {
			tags["hostname"] = host
		}
	}
	return tags
}

// Stop uploads the last profiles. Later calls return the first result.
func (p *Profiler) Stop() error {
	p.stop.Do(func() {
		if p.profiler == nil {
			return
		}
		if err := p.profiler.Stop(); err != nil {
			p.stopErr = fmt.Errorf("stop pyroscope: %w", err)
			return
		}
		p.logger.Info("Continuous profiling stopped")
	})
	return p.stopErr
}

// IsEnabled reports whether a profiling session is running
func (p *Profiler) IsEnabled() bool {
	return p.profiler != nil
}

// pyroscopeLogger routes Pyroscope SDK messages to zap. The sugared logger
// already has the Debugf, Infof and Errorf the SDK calls.
type pyroscopeLogger struct {
	*zap.SugaredLogger
}

var _ pyroscope.Logger = pyroscopeLogger{}
