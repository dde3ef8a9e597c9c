// Package locale holds the closed set of matching-key locales and the
// user-facing message catalog for each. Supplemented from
// original_source/Rp.py's LANGUAGES table — spec.md treats locale as an
// opaque matching key, but Relay step 6 needs an actual localized
// "random partner" marker, so the strings have to live somewhere.
package locale

// Supported is the closed set of locale tags usable as a matching key
// (spec.md §3: "one of a small closed set").
var Supported = []string{"en", "ar", "es"}

// Default is used for any user not yet in all_users.
const Default = "en"

// IsSupported reports whether code is one of the closed set.
func IsSupported(code string) bool {
	for _, c := range Supported {
		if c == code {
			return true
		}
	}
	return false
}

type catalog struct {
	Welcome            string
	AlreadyInChat      string
	AlreadySearching   string
	SearchWait         string
	PartnerFound       string
	EndMsgUser         string
	EndMsgPartner      string
	EndNotInChat       string
	LinkBlocked        string
	UsernameBlocked    string
	GloballyBanned     string
	JoinChannelMsg     string
	BlockConfirmText   string
	BlockCancelled     string
	BlockSuccess       string
	BlockNotInChat     string
	BlockWhileSearch   string
	UnreachablePartner string
	NotInChatMsg       string
	PartnerPrefix      string
	NextMsgUser        string
}

var catalogs = map[string]catalog{
	"en": {
		Welcome:            "Welcome to \U0001F3B2 Random Partner\nThe anonymous Chat Bot!\n\nPress 'Search' to find a partner.",
		AlreadyInChat:      "You are currently in a chat. Use the buttons below.",
		AlreadySearching:   "You are currently in the waiting queue. Use the buttons below.",
		SearchWait:         "\U0001F50E Searching for a partner... Please wait.",
		PartnerFound:       "✅ Partner found! The chat has started. (You are anonymous).",
		EndMsgUser:         "\U0001F51A You have ended the chat.",
		EndMsgPartner:      "⚠️ Your partner has left the chat.",
		EndNotInChat:       "You are not currently in a chat or searching.",
		LinkBlocked:        "⛔️ You cannot send links (URLs) in anonymous chat.",
		UsernameBlocked:    "⛔️ You cannot send user identifiers (usernames) in anonymous chat.",
		GloballyBanned:     "\U0001F6AB Your access to this bot has been suspended permanently.",
		JoinChannelMsg:     "To use this bot, join our channel first, then press \"I have joined\".",
		BlockConfirmText:   "Confirm block and report? This ends the chat immediately.",
		BlockCancelled:     "Block/report cancelled. You can continue chatting.",
		BlockSuccess:       "The user has been blocked and the chat has ended. Press Next to find a new partner.",
		BlockNotInChat:     "You are not currently in a chat to block anyone.",
		BlockWhileSearch:   "You cannot block anyone while searching. Use Stop first.",
		UnreachablePartner: "Your partner seems to have blocked the bot or left. The chat has ended.",
		NotInChatMsg:       "You are not in a chat. Press Search to find a partner.",
		PartnerPrefix:      "Random partner\U0001F3B2 : ",
		NextMsgUser:        "\U0001F50E Searching for a new partner...",
	},
	"ar": {
		Welcome:            "مرحباً بك في \U0001F3B2 شريك عشوائي",
		AlreadyInChat:      "أنت حالياً في محادثة.",
		AlreadySearching:   "أنت حالياً في قائمة الانتظار.",
		SearchWait:         "\U0001F50E البحث عن شريك...",
		PartnerFound:       "✅ تم العثور على شريك!",
		EndMsgUser:         "\U0001F51A لقد أنهيت المحادثة.",
		EndMsgPartner:      "⚠️ لقد غادر شريكك المحادثة.",
		EndNotInChat:       "أنت لست في محادثة حالياً.",
		LinkBlocked:        "⛔️ لا يمكنك إرسال روابط.",
		UsernameBlocked:    "⛔️ لا يمكنك إرسال معرفات.",
		GloballyBanned:     "\U0001F6AB تم إيقاف وصولك بشكل دائم.",
		JoinChannelMsg:     "يرجى الانضمام للقناة أولاً.",
		BlockConfirmText:   "تأكيد الحظر والإبلاغ؟",
		BlockCancelled:     "تم إلغاء عملية الحظر.",
		BlockSuccess:       "تم حظر المستخدم وإنهاء المحادثة.",
		BlockNotInChat:     "أنت لست في محادثة لحظر أحد.",
		BlockWhileSearch:   "لا يمكنك الحظر أثناء البحث.",
		UnreachablePartner: "يبدو أن شريكك غير متاح. انتهت المحادثة.",
		NotInChatMsg:       "أنت لست في محادثة.",
		PartnerPrefix:      "صديق/ة\U0001F3B2 : ",
		NextMsgUser:        "\U0001F50E البحث عن شريك جديد...",
	},
	"es": {
		Welcome:            "¡Bienvenido a \U0001F3B2 Compañero Aleatorio!",
		AlreadyInChat:      "Actualmente estás en un chat.",
		AlreadySearching:   "Actualmente estás en la cola de espera.",
		SearchWait:         "\U0001F50E Buscando un compañero...",
		PartnerFound:       "✅ ¡Compañero encontrado!",
		EndMsgUser:         "\U0001F51A Has terminado el chat.",
		EndMsgPartner:      "⚠️ Tu compañero ha dejado el chat.",
		EndNotInChat:       "No estás en un chat ni buscando.",
		LinkBlocked:        "⛔️ No puedes enviar enlaces en el chat anónimo.",
		UsernameBlocked:    "⛔️ No puedes enviar nombres de usuario.",
		GloballyBanned:     "\U0001F6AB Tu acceso a este bot ha sido suspendido.",
		JoinChannelMsg:     "Únete al canal primero.",
		BlockConfirmText:   "¿Confirmar bloqueo y reporte?",
		BlockCancelled:     "Bloqueo/reporte cancelado.",
		BlockSuccess:       "El usuario ha sido bloqueado y el chat ha terminado.",
		BlockNotInChat:     "No estás en un chat para bloquear a nadie.",
		BlockWhileSearch:   "No puedes bloquear mientras buscas.",
		UnreachablePartner: "Tu compañero parece haber bloqueado el bot. El chat ha terminado.",
		NotInChatMsg:       "No estás en un chat.",
		PartnerPrefix:      "Compañero aleatorio\U0001F3B2 : ",
		NextMsgUser:        "\U0001F50E Buscando un nuevo compañero...",
	},
}

func lookup(code string) catalog {
	if c, ok := catalogs[code]; ok {
		return c
	}
	return catalogs[Default]
}

// PartnerPrefix returns the "random partner: " marker in the recipient's
// locale, used to prefix relayed text/captions (spec.md §4.4 step 6).
func PartnerPrefix(code string) string { return lookup(code).PartnerPrefix }

func Welcome(code string) string            { return lookup(code).Welcome }
func AlreadyInChat(code string) string      { return lookup(code).AlreadyInChat }
func AlreadySearching(code string) string   { return lookup(code).AlreadySearching }
func SearchWait(code string) string         { return lookup(code).SearchWait }
func PartnerFound(code string) string       { return lookup(code).PartnerFound }
func EndMsgUser(code string) string         { return lookup(code).EndMsgUser }
func EndMsgPartner(code string) string      { return lookup(code).EndMsgPartner }
func EndNotInChat(code string) string       { return lookup(code).EndNotInChat }
func LinkBlocked(code string) string        { return lookup(code).LinkBlocked }
func UsernameBlocked(code string) string    { return lookup(code).UsernameBlocked }
func GloballyBanned(code string) string     { return lookup(code).GloballyBanned }
func JoinChannelMsg(code string) string     { return lookup(code).JoinChannelMsg }
func BlockConfirmText(code string) string   { return lookup(code).BlockConfirmText }
func BlockCancelled(code string) string     { return lookup(code).BlockCancelled }
func BlockSuccess(code string) string       { return lookup(code).BlockSuccess }
func BlockNotInChat(code string) string     { return lookup(code).BlockNotInChat }
func BlockWhileSearch(code string) string   { return lookup(code).BlockWhileSearch }
func UnreachablePartner(code string) string { return lookup(code).UnreachablePartner }
func NotInChatMsg(code string) string       { return lookup(code).NotInChatMsg }
func NextMsgUser(code string) string        { return lookup(code).NextMsgUser }
