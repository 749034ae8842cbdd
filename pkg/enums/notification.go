package enums

// NotificationType selects the copy and deep link of an in-app notification.
type NotificationType string

const (
	NotificationTypeRequestAccepted  NotificationType = "request_accepted"
	NotificationTypeRequestDelivered NotificationType = "request_delivered"
	NotificationTypeRequestCompleted NotificationType = "request_completed"
	NotificationTypeRequestCancelled NotificationType = "request_cancelled"
	NotificationTypeNewMessage       NotificationType = "new_message"
)

var notificationTypes = members[NotificationType]{
	NotificationTypeRequestAccepted,
	NotificationTypeRequestDelivered,
	NotificationTypeRequestCompleted,
	NotificationTypeRequestCancelled,
	NotificationTypeNewMessage,
}

func (n NotificationType) IsValid() bool { return notificationTypes.has(n) }
