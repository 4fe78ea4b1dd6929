package errors

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared by every layer.
const (
	ErrCodeInternal       ErrorCode = "COMMON_001"
	ErrCodeBadRequest     ErrorCode = "COMMON_002"
	ErrCodeNotFound       ErrorCode = "COMMON_003"
	ErrCodeConflict       ErrorCode = "COMMON_004"
	ErrCodeValidation     ErrorCode = "COMMON_005"
	ErrCodeSerialization  ErrorCode = "COMMON_006"
	ErrCodeNotImplemented ErrorCode = "COMMON_007"
	ErrCodeUnknown        ErrorCode = "COMMON_000"
)

// Structure error codes: the molecular structure itself is unusable, or a
// strictly required descriptor is undefined for it. Classification of the
// affected structure aborts; other structures in a batch are unaffected.
const (
	ErrCodeStructureInvalid     ErrorCode = "STRUCT_001"
	ErrCodeStructureParseFailed ErrorCode = "STRUCT_002"
	ErrCodeDescriptorUndefined  ErrorCode = "STRUCT_003"
	ErrCodePatternInvalid       ErrorCode = "STRUCT_004"
)

// Ontology specification error codes: the ontology graph or rule set is
// malformed. These are configuration errors surfaced at load time, before
// any structure is classified, and are never retried.
const (
	ErrCodeOntologyCycle        ErrorCode = "ONT_001"
	ErrCodeOntologyDangling     ErrorCode = "ONT_002"
	ErrCodeOntologyNoRoot       ErrorCode = "ONT_003"
	ErrCodeOntologyUnknownClass ErrorCode = "ONT_004"
	ErrCodeOntologyDuplicate    ErrorCode = "ONT_005"
)

// Rule-set error codes: a rule definition is malformed (bad pattern, bad
// model shape). Load-time only; a loadable rule never errors at evaluation
// time; unavailability is a recorded outcome, not an error.
const (
	ErrCodeRuleInvalid         ErrorCode = "RULE_001"
	ErrCodeRuleUnknownKind     ErrorCode = "RULE_002"
	ErrCodeRuleSpecParseFailed ErrorCode = "RULE_003"
)

// Short aliases used at call sites throughout the engine.
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeNotImplemented = ErrCodeNotImplemented
	CodeUnknown        = ErrCodeUnknown
	CodeOK             = ErrorCode("OK")
)

// isStructureCode reports whether code belongs to the STRUCT_* family.
func isStructureCode(code ErrorCode) bool {
	switch code {
	case ErrCodeStructureInvalid, ErrCodeStructureParseFailed,
		ErrCodeDescriptorUndefined, ErrCodePatternInvalid:
		return true
	}
	return false
}

// isOntologySpecCode reports whether code belongs to the ONT_* family.
func isOntologySpecCode(code ErrorCode) bool {
	switch code {
	case ErrCodeOntologyCycle, ErrCodeOntologyDangling, ErrCodeOntologyNoRoot,
		ErrCodeOntologyUnknownClass, ErrCodeOntologyDuplicate:
		return true
	}
	return false
}

// isRuleSpecCode reports whether code belongs to the RULE_* family.
func isRuleSpecCode(code ErrorCode) bool {
	switch code {
	case ErrCodeRuleInvalid, ErrCodeRuleUnknownKind, ErrCodeRuleSpecParseFailed:
		return true
	}
	return false
}
