package chats

import (
	"fmt"

	"github.com/google/uuid"
)

// ThreadID derives the thread key for a (requester, pasabuyer, request)
// triple as pasabuyer_requester_request. Every caller computes the same id.
func ThreadID(requesterID, pasabuyerID, requestID uuid.UUID) string {
	return fmt.Sprintf("%s_%s_%s", pasabuyerID, requesterID, requestID)
}
