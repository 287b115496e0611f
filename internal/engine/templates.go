package engine

import (
	"fmt"
	"strings"

	"github.com/lonkyzooner/thunderfire-sub002/internal/action"
	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

const (
	metaErrorKind = "error_kind"

	replyApology    = "I'm sorry, I'm unable to respond right now. Please try again or contact dispatch directly."
	internalApology = "Something went wrong while handling your request. Please try again or contact dispatch directly."

	languageEnglish = "english"
	languageSpanish = "spanish"
)

var dispatchTemplates = map[string]string{
	action.NotifyBackupRequest: "Backup requested at %s. Urgency: %s. Dispatch has been notified and units are being routed to you.",
	action.NotifyArrival:       "Dispatch notified of your arrival at %s.",
	action.NotifyStatusUpdate:  "Status update sent to dispatch from %s.",
	action.NotifyGeneric:       "Dispatch has been notified. Your location is %s.",
}

func dispatchMessage(notifyType, location, urgency string) string {
	switch notifyType {
	case action.NotifyBackupRequest:
		return fmt.Sprintf(dispatchTemplates[notifyType], location, urgency)
	case action.NotifyArrival, action.NotifyStatusUpdate:
		return fmt.Sprintf(dispatchTemplates[notifyType], location)
	default:
		return fmt.Sprintf(dispatchTemplates[action.NotifyGeneric], location)
	}
}

var complianceTemplates = map[string]string{
	types.IntentArrivingScene: "Arrival on scene logged for compliance.",
	types.IntentSceneSecure:   "Scene secured. Status logged for compliance.",
	types.IntentArrestMade:    "Arrest logged for compliance. Remember to deliver the Miranda warning.",
}

func complianceMessage(actionName string) string {
	if msg, ok := complianceTemplates[actionName]; ok {
		return msg
	}
	return fmt.Sprintf("Action %q logged for compliance.", strings.ReplaceAll(actionName, "_", " "))
}

var mirandaWarnings = map[string]string{
	languageEnglish: "You have the right to remain silent. Anything you say can and will be used against you in a court of law. " +
		"You have the right to an attorney. If you cannot afford an attorney, one will be appointed for you. " +
		"Do you understand the rights I have just read to you?",
	languageSpanish: "Usted tiene el derecho de permanecer callado. Cualquier cosa que diga puede y será usada en su contra en un tribunal de justicia. " +
		"Usted tiene el derecho a un abogado. Si no puede pagar un abogado, se le asignará uno. " +
		"¿Entiende los derechos que le acabo de leer?",
}

// mirandaWarning returns the warning text and the language actually
// delivered, which is english for any language without a template.
func mirandaWarning(requested string) (string, string) {
	lang := strings.ToLower(strings.TrimSpace(requested))
	if lang == "" {
		lang = languageEnglish
	}
	if text, ok := mirandaWarnings[lang]; ok {
		return text, lang
	}
	return mirandaWarnings[languageEnglish], languageEnglish
}

const baseDirective = "You are a concise assistant for a law enforcement officer in the field. Answer briefly and factually."

func sceneDirective(sc types.SceneContext) string {
	var sb strings.Builder
	sb.WriteString(baseDirective)
	fmt.Fprintf(&sb, " Current scenario: %s. Threat level: %s. Time of day: %s.", sc.ScenarioType, sc.ThreatLevel, sc.TimeOfDay)
	if sc.WeaponsPresent != nil && *sc.WeaponsPresent {
		sb.WriteString(" Weapons are reported on scene.")
	}
	if sc.SuspectCount != nil {
		fmt.Fprintf(&sb, " Suspects on scene: %d.", *sc.SuspectCount)
	}
	switch sc.ThreatLevel {
	case types.ThreatHigh, types.ThreatCritical:
		sb.WriteString(" Keep replies to one or two sentences and put officer safety first.")
	}
	return sb.String()
}
