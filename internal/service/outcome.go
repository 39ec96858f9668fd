package service

import "github.com/juancollazo-ch/holded-order-monitor/internal/models/serviceresponse"

type outcomeKind uint8

const (
	outcomeContinue outcomeKind = iota
	// la ejecución se anota como saltada pero sigue hasta COMMIT
	outcomeSkipContinue
	outcomeSkip
	outcomeFail
)

// stageOutcome es lo que devuelve cada etapa del flujo
type stageOutcome struct {
	kind   outcomeKind
	reason serviceresponse.SkipReason
	err    error
}

func proceed() stageOutcome {
	return stageOutcome{kind: outcomeContinue}
}

func skipAndContinue(reason serviceresponse.SkipReason) stageOutcome {
	return stageOutcome{kind: outcomeSkipContinue, reason: reason}
}

func skip(reason serviceresponse.SkipReason) stageOutcome {
	return stageOutcome{kind: outcomeSkip, reason: reason}
}

func fail(err error) stageOutcome {
	return stageOutcome{kind: outcomeFail, err: err}
}
