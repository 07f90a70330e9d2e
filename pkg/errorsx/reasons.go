package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonTransportRecv ReasonCode = "transport_recv"
	ReasonTransportSend ReasonCode = "transport_send"

	ReasonRecognitionConnect ReasonCode = "recognition_connect"
	ReasonRecognitionSend    ReasonCode = "recognition_send"
	ReasonRecognitionStream  ReasonCode = "recognition_stream"

	ReasonGenerate          ReasonCode = "generate"
	ReasonGenerateRateLimit ReasonCode = "generate_rate_limit"

	ReasonSynthesize          ReasonCode = "synthesize"
	ReasonSynthesizeRateLimit ReasonCode = "synthesize_rate_limit"

	ReasonTransportInvalidSignature ReasonCode = "webhook_invalid_signature"
)
