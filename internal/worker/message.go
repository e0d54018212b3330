package worker

import "github.com/i474232898/climate-series/internal/series"

// Action names an inbound worker message.
type Action string

const (
	ActionConfig    Action = "CONFIG"
	ActionGetData   Action = "GET_DATA"
	ActionTerminate Action = "TERMINATE"
)

// Message is posted to a worker. Routes is read for CONFIG; DataType and
// Filters for GET_DATA.
type Message struct {
	Action   Action
	Routes   series.Routes
	DataType string
	Filters  series.Filter
}

// Config builds a CONFIG message.
func Config(routes series.Routes) Message {
	return Message{Action: ActionConfig, Routes: routes.Clone()}
}

// GetData builds a GET_DATA message.
func GetData(dataType string, filters series.Filter) Message {
	return Message{Action: ActionGetData, DataType: dataType, Filters: filters}
}

// Terminate builds a TERMINATE message.
func Terminate() Message {
	return Message{Action: ActionTerminate}
}

// Status tags a worker reply.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// Reply answers exactly one GET_DATA message.
type Reply struct {
	Status Status
	Result series.ResultSet
	Err    error
}
