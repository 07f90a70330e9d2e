package frames

// Meta keys shared across components. Values are always strings so frames
// stay cheap to copy and log.
const (
	MetaStreamID      = "stream_id"
	MetaCallSID       = "call_sid"
	MetaTraceID       = "trace_id"
	MetaSource        = "source"
	MetaIsFinal       = "is_final"
	MetaEncoding      = "encoding"
	MetaFormat        = "format"
	MetaTrack         = "track"
	MetaMarkName      = "mark_name"
	MetaReason        = "reason"
	MetaCallEndReason = "call_end_reason"
	MetaFromNumber    = "from_number"
)

// System frame names emitted by transports.
const (
	SystemCallStart = "call_start"
	SystemCallEnd   = "call_end"
)
