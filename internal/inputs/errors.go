package inputs

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/experiment"
)

// #region config-error

// ConfigError reports a constructor identifier with no registered
// implementation. This is a programmer error (the registry is closed and
// populated at build time); callers must not catch and retry it.
type ConfigError struct {
	ID ConstructorID
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf(
		"input constructor %q is not registered; add it to internal/inputs/constructors.go",
		e.ID,
	)
}

// #endregion config-error

// #region no-target-trial

// NoTargetTrialError reports that no trial on the experiment qualifies as
// the target trial for fixed-features construction. It carries the
// requesting stage and a status snapshot so the operator can see why
// nothing qualified. Retryable only after experiment state changes.
type NoTargetTrialError struct {
	Stage    string
	Statuses map[int]experiment.TrialStatus
}

func (e *NoTargetTrialError) Error() string {
	return fmt.Sprintf(
		"constructing inputs for stage %q: no trial matches the expected conditions; "+
			"no trial is in a data-bearing status (running, completed, early_stopped); "+
			"trial statuses: %v",
		e.Stage, e.Statuses,
	)
}

// #endregion no-target-trial
