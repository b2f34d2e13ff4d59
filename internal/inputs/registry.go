package inputs

// #region registry

// constructorFunc is the shared contract every constructor implements.
type constructorFunc func(req Request) (Result, error)

// constructors is the closed dispatch table. Every ConstructorID binds to
// exactly one function here, statically; there is no name lookup.
var constructors = map[ConstructorID]constructorFunc{
	ConsumeAllN:    consumeAllN,
	RepeatArmN:     repeatArmN,
	RemainingN:     remainingN,
	SetTargetTrial: setTargetTrial,
}

// purposes tags each constructor with the result family it produces.
var purposes = map[ConstructorID]Purpose{
	ConsumeAllN:    PurposeCount,
	RepeatArmN:     PurposeCount,
	RemainingN:     PurposeCount,
	SetTargetTrial: PurposeFixedFeatures,
}

// #endregion registry

// #region dispatch

// Dispatch resolves an identifier to its constructor and invokes it.
// An unregistered identifier is a ConfigError.
func Dispatch(id ConstructorID, req Request) (Result, error) {
	fn, ok := constructors[id]
	if !ok {
		return Result{}, &ConfigError{ID: id}
	}
	return fn(req)
}

// PurposeOf returns the result family an identifier produces.
func PurposeOf(id ConstructorID) (Purpose, bool) {
	p, ok := purposes[id]
	return p, ok
}

// All returns every registered identifier, for validation and replay.
func All() []ConstructorID {
	return []ConstructorID{ConsumeAllN, RepeatArmN, RemainingN, SetTargetTrial}
}

// #endregion dispatch
