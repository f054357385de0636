package usecase

// Metrics is the counter surface the use cases report to;
// *monitoring.Metrics satisfies it.
type Metrics interface {
	IncRelayed(source, kind, outcome string)
	IncPairing(outcome string)
	IncMailboxRead(result string)
}

type noopMetrics struct{}

func (noopMetrics) IncRelayed(string, string, string) {}
func (noopMetrics) IncPairing(string)                 {}
func (noopMetrics) IncMailboxRead(string)             {}

func orNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

// 消息来源标签
const (
	SourceTelegram    = "telegram"
	SourceInternalAPI = "internal_api"
)
