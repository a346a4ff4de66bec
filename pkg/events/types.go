package events

// EventType identifies a pipeline lifecycle event.
type EventType string

const (
	// Pipeline lifecycle events
	PipelineStart EventType = "pipeline_start"
	PipelineEnd   EventType = "pipeline_end"
	PipelineError EventType = "pipeline_error"

	// Analysis events
	AnalysisStart     EventType = "analysis_start"
	AnalysisCompleted EventType = "analysis_completed"

	// Personalization events
	PersonalizationStart   EventType = "personalization_start"
	PersonalizationApplied EventType = "personalization_applied"

	// Generation events
	GenerationAttempt EventType = "generation_attempt"
	GenerationEnd     EventType = "generation_end"
	GenerationError   EventType = "generation_error"

	// Validation events
	ValidationStart     EventType = "validation_start"
	ValidationCompleted EventType = "validation_completed"
	ValidationRescued   EventType = "validation_rescued"

	// Recovery events
	ErrorClassified EventType = "error_classified"
	RetryScheduled  EventType = "retry_scheduled"
	RetryAbandoned  EventType = "retry_abandoned"

	// Session events
	SessionLoaded  EventType = "session_loaded"
	SessionUpdated EventType = "session_updated"

	// Regression events
	SuiteStart    EventType = "suite_start"
	SuiteEnd      EventType = "suite_end"
	CaseCompleted EventType = "case_completed"
)

// Component labels for event attribution.
const (
	ComponentPipeline  = "pipeline"
	ComponentAnalyzer  = "analyzer"
	ComponentEngine    = "personalization"
	ComponentGenerator = "generator"
	ComponentValidator = "validator"
	ComponentRecovery  = "recovery"
	ComponentSession   = "session"
	ComponentRunner    = "regression"
)
