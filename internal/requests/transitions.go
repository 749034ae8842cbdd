package requests

import (
	"fmt"

	"github.com/pasabuy/pasabuy-backend/pkg/enums"
	pkgerrors "github.com/pasabuy/pasabuy-backend/pkg/errors"
)

// Actor is the caller's relationship to a request, not their account role.
type Actor string

const (
	ActorRequester Actor = "requester"
	ActorPasabuyer Actor = "pasabuyer"
)

// StatusNone is the "from" state of a request that does not exist yet.
const StatusNone enums.RequestStatus = ""

type transitionKey struct {
	from enums.RequestStatus
	to   enums.RequestStatus
}

var transitionTable = map[transitionKey][]Actor{
	{StatusNone, enums.RequestStatusActive}:                      {ActorRequester},
	{enums.RequestStatusActive, enums.RequestStatusAccepted}:     {ActorPasabuyer},
	{enums.RequestStatusActive, enums.RequestStatusCancelled}:    {ActorRequester},
	{enums.RequestStatusAccepted, enums.RequestStatusDelivered}:  {ActorPasabuyer},
	{enums.RequestStatusAccepted, enums.RequestStatusCancelled}:  {ActorRequester, ActorPasabuyer},
	{enums.RequestStatusDelivered, enums.RequestStatusCompleted}: {ActorRequester},
	{enums.RequestStatusDelivered, enums.RequestStatusCancelled}: {ActorRequester},
}

// Transition checks the lifecycle table. A pair missing from the table is a
// STATE_CONFLICT; a listed pair with the wrong actor is FORBIDDEN.
func Transition(from, to enums.RequestStatus, actor Actor) error {
	actors, ok := transitionTable[transitionKey{from: from, to: to}]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move request from %s to %s", displayStatus(from), to)).
			WithDetails(map[string]string{"from": string(from), "to": string(to)})
	}
	for _, allowed := range actors {
		if allowed == actor {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("%s cannot move request from %s to %s", actor, displayStatus(from), to))
}

func displayStatus(status enums.RequestStatus) string {
	if status == StatusNone {
		return "none"
	}
	return string(status)
}
