package enums

// OutboxAggregateType is the kind of entity an outbox event describes.
type OutboxAggregateType string

const (
	AggregateRequest    OutboxAggregateType = "request"
	AggregateChatThread OutboxAggregateType = "chat_thread"
)

var aggregateTypes = members[OutboxAggregateType]{AggregateRequest, AggregateChatThread}

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

// OutboxEventType names what happened. Values are part of the published
// message attributes; never rename one.
type OutboxEventType string

const (
	EventRequestCreated   OutboxEventType = "request_created"
	EventRequestUpdated   OutboxEventType = "request_updated"
	EventRequestAccepted  OutboxEventType = "request_accepted"
	EventRequestDelivered OutboxEventType = "request_delivered"
	EventRequestCompleted OutboxEventType = "request_completed"
	EventRequestCancelled OutboxEventType = "request_cancelled"
	EventMessageSent      OutboxEventType = "message_sent"
)

var eventTypes = members[OutboxEventType]{
	EventRequestCreated,
	EventRequestUpdated,
	EventRequestAccepted,
	EventRequestDelivered,
	EventRequestCompleted,
	EventRequestCancelled,
	EventMessageSent,
}

func (e OutboxEventType) IsValid() bool { return eventTypes.has(e) }

// OutboxDLQErrorReason is why a row was dead-lettered.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
