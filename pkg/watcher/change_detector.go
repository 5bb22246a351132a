package watcher

import "github.com/vcanio/Terio-sub000/pkg/config"

// ChangeAnalysis describes what changed between two loaded configurations and
// what can be applied without a restart
type ChangeAnalysis struct {
	Logging bool // verbosity or log format changed; applied live
	Auth    bool // password changed; new logins use it
	Layout  bool // placement seed or container size changed; applies to the next opened patient

	// NeedRestart lists settings that only take effect on the next start
	NeedRestart []string
}

// Empty reports whether nothing changed
func (a *ChangeAnalysis) Empty() bool {
	return !a.Logging && !a.Auth && !a.Layout && len(a.NeedRestart) == 0
}

// AnalyzeChanges compares the running configuration with a freshly loaded one
func AnalyzeChanges(old, updated *config.Config) *ChangeAnalysis {
	analysis := &ChangeAnalysis{}

	analysis.Logging = old.Verbosity != updated.Verbosity ||
		old.VerboseCnt != updated.VerboseCnt ||
		old.JSONLogs != updated.JSONLogs
	analysis.Auth = old.Password != updated.Password
	analysis.Layout = old.Seed != updated.Seed ||
		old.ContainerWidth != updated.ContainerWidth ||
		old.ContainerHeight != updated.ContainerHeight

	// The listener and the database are bound once at startup
	if old.Addr != updated.Addr {
		analysis.NeedRestart = append(analysis.NeedRestart, "addr")
	}
	if old.Port != updated.Port {
		analysis.NeedRestart = append(analysis.NeedRestart, "port")
	}
	if old.Data != updated.Data {
		analysis.NeedRestart = append(analysis.NeedRestart, "data")
	}
	if old.ExportDir != updated.ExportDir {
		analysis.NeedRestart = append(analysis.NeedRestart, "export_dir")
	}

	return analysis
}
