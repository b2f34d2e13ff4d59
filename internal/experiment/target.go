package experiment

// #region target-trial

// TargetTrialIndex selects the trial a downstream stage should condition
// its generation on: the most recent (highest-index) trial whose status
// is expected to carry data. Returns false when no trial qualifies.
func TargetTrialIndex(exp *Experiment) (int, bool) {
	best := -1
	for _, t := range exp.Trials {
		if !ExpectingData(t.Status) {
			continue
		}
		if t.Index > best {
			best = t.Index
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// #endregion target-trial
