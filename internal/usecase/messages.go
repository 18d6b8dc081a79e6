package usecase

import "github.com/trackcqishibee-web/locallife-assistant/pkg/local"

var (
	MessageAskCity = local.NewSet(
		"Which city are you interested in? Try one of: %s.",
		local.NewTrans(local.Spa, "¿Qué ciudad te interesa? Prueba una de: %s."),
	)
	MessageAskEventType = local.NewSet(
		"Got it, %s. What kind of thing are you in the mood for? Try one of: %s.",
		local.NewTrans(local.Spa, "Entendido, %s. ¿Qué tipo de plan buscas? Prueba uno de: %s."),
	)
	MessageUnknownCity = local.NewSet(
		"I don't recognize %q as a city I cover. Did you mean one of: %s?",
		local.NewTrans(local.Spa, "No reconozco %q como una ciudad disponible. ¿Querías decir una de: %s?"),
	)
	MessageUnknownEventType = local.NewSet(
		"I don't recognize %q as a category I cover. Did you mean one of: %s?",
		local.NewTrans(local.Spa, "No reconozco %q como una categoría disponible. ¿Querías decir una de: %s?"),
	)
	MessageSelectionReady = local.NewSet(
		"Great - %s for %s. Ask me anything, e.g. \"what's happening this weekend?\"",
		local.NewTrans(local.Spa, "Genial: %s y %s. Pregúntame lo que quieras."),
	)
	MessageTrialWarning = local.NewSet(
		"Heads up: only %d free interactions left. Register to keep your conversation history.",
		local.NewTrans(local.Spa, "Aviso: solo quedan %d interacciones gratis. Regístrate para conservar tu historial."),
	)
	MessageTrialExceeded = local.NewSet(
		"You've reached the free trial limit. Please register to continue and keep your conversation history.",
		local.NewTrans(local.Spa, "Has alcanzado el límite de la prueba gratuita. Regístrate para continuar."),
	)
)
