package telegram

const (
	textNoAccess       = "Mi dispiace, non hai accesso a questo bot. Contatta l'amministratore."
	textWelcome        = "Benvenuto! Per iniziare, imposta la tua città usando il comando /setcity seguito dal nome della città.\nEsempio: /setcity Roma"
	textWelcomeBackFmt = "Bentornato! La tua città attuale è %s.\nUsa /setcity per cambiarla."
	textCityMissing    = "Per favore, specifica una città.\nEsempio: /setcity Roma"
	textCitySetFmt     = "Ho impostato la tua città a %s.\nRiceverai notifiche ogni giorno alle %d:00 se ci sono partite nella tua città!"
	textCityUnknownFmt = "Attenzione: nessuna squadra di Serie A gioca le partite in casa a %s, quindi probabilmente non riceverai notifiche."
	textNeedCity       = "Prima devi impostare la tua città usando /setcity"
	textGenericError   = "Si è verificato un errore. Riprova più tardi."
	textHelpFmt        = `Ecco i comandi disponibili:

/start - Avvia il bot
/setcity [città] - Imposta la tua città
/check - Controlla le partite di oggi nella tua città
/help - Mostra questo messaggio di aiuto

Riceverai automaticamente una notifica alle %d:00 se ci sono partite nella tua città!`

	textAdminOnly       = "Questo comando è riservato all'amministratore."
	textAdminModeFmt    = "Modalità di accesso attuale: %s"
	textAdminModeSetFmt = "Modalità di accesso impostata a %s."
	textAdminBadMode    = "Modalità non valida. Usa allowlist oppure denylist."
	textAdminEntryUsage = "Formato: %s <allowlist|denylist> <ID utente>"
	textAdminBadID      = "L'ID utente deve essere un numero."
	textAdminAddedFmt   = "Utente %d aggiunto alla %s."
	textAdminRemovedFmt = "Utente %d rimosso dalla %s."
	textAdminCleanup    = "Pulizia degli utenti che hanno bloccato il bot messa in coda."
	textAdminNoSubs     = "Nessun utente registrato."
)
