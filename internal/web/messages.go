package web

import (
	"github.com/desertthunder/todox/internal/locale"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// translations maps locale → English source string → translated string.
var translations = map[string]map[string]string{
	"es": {
		"Todos":                         "Tareas",
		"Sign in":                       "Iniciar sesión",
		"Sign up":                       "Registrarse",
		"Email":                         "Correo electrónico",
		"Password":                      "Contraseña",
		"Repeat password":               "Repetir contraseña",
		"Forgot your password?":         "¿Olvidaste tu contraseña?",
		"Don't have an account?":        "¿No tienes una cuenta?",
		"Already have an account?":      "¿Ya tienes una cuenta?",
		"Reset your password":           "Restablecer contraseña",
		"Send reset email":              "Enviar correo",
		"Update password":               "Actualizar contraseña",
		"New password":                  "Nueva contraseña",
		"Logout":                        "Cerrar sesión",
		"Thank you for signing up!":     "¡Gracias por registrarte!",
		"Check your email":              "Revisa tu correo",
		"Sorry, something went wrong.":  "Lo sentimos, algo salió mal.",
		"Passwords do not match":        "Las contraseñas no coinciden",
		"No todos yet. Add one above!":  "Aún no hay tareas. ¡Añade una arriba!",
		"What do you want to do today?": "¿Qué quieres hacer hoy?",
		"Clear all":                     "Borrar todo",
		"Your user details":             "Tus datos de usuario",
	},
	"fr": {
		"Todos":                         "Tâches",
		"Sign in":                       "Se connecter",
		"Sign up":                       "S'inscrire",
		"Email":                         "E-mail",
		"Password":                      "Mot de passe",
		"Repeat password":               "Répéter le mot de passe",
		"Forgot your password?":         "Mot de passe oublié ?",
		"Don't have an account?":        "Pas encore de compte ?",
		"Already have an account?":      "Déjà un compte ?",
		"Reset your password":           "Réinitialiser le mot de passe",
		"Send reset email":              "Envoyer l'e-mail",
		"Update password":               "Modifier le mot de passe",
		"New password":                  "Nouveau mot de passe",
		"Logout":                        "Se déconnecter",
		"Thank you for signing up!":     "Merci de votre inscription !",
		"Check your email":              "Consultez vos e-mails",
		"Sorry, something went wrong.":  "Désolé, une erreur s'est produite.",
		"Passwords do not match":        "Les mots de passe ne correspondent pas",
		"No todos yet. Add one above!":  "Aucune tâche. Ajoutez-en une ci-dessus !",
		"What do you want to do today?": "Que voulez-vous faire aujourd'hui ?",
		"Clear all":                     "Tout effacer",
		"Your user details":             "Vos informations",
	},
	"de": {
		"Todos":                         "Aufgaben",
		"Sign in":                       "Anmelden",
		"Sign up":                       "Registrieren",
		"Email":                         "E-Mail",
		"Password":                      "Passwort",
		"Repeat password":               "Passwort wiederholen",
		"Forgot your password?":         "Passwort vergessen?",
		"Don't have an account?":        "Noch kein Konto?",
		"Already have an account?":      "Schon ein Konto?",
		"Reset your password":           "Passwort zurücksetzen",
		"Send reset email":              "E-Mail senden",
		"Update password":               "Passwort ändern",
		"New password":                  "Neues Passwort",
		"Logout":                        "Abmelden",
		"Thank you for signing up!":     "Danke für deine Registrierung!",
		"Check your email":              "Prüfe dein Postfach",
		"Sorry, something went wrong.":  "Leider ist etwas schiefgelaufen.",
		"Passwords do not match":        "Passwörter stimmen nicht überein",
		"No todos yet. Add one above!":  "Noch keine Aufgaben. Füge oben eine hinzu!",
		"What do you want to do today?": "Was möchtest du heute erledigen?",
		"Clear all":                     "Alle löschen",
		"Your user details":             "Deine Benutzerdaten",
	},
	"zh-TW": {
		"Todos":                         "待辦事項",
		"Sign in":                       "登入",
		"Sign up":                       "註冊",
		"Email":                         "電子郵件",
		"Password":                      "密碼",
		"Repeat password":               "再次輸入密碼",
		"Forgot your password?":         "忘記密碼？",
		"Don't have an account?":        "還沒有帳號？",
		"Already have an account?":      "已經有帳號？",
		"Reset your password":           "重設密碼",
		"Send reset email":              "寄送重設信",
		"Update password":               "更新密碼",
		"New password":                  "新密碼",
		"Logout":                        "登出",
		"Thank you for signing up!":     "感謝您的註冊！",
		"Check your email":              "請查看您的電子郵件",
		"Sorry, something went wrong.":  "抱歉，發生錯誤。",
		"Passwords do not match":        "密碼不一致",
		"No todos yet. Add one above!":  "目前沒有待辦事項，請在上方新增！",
		"What do you want to do today?": "今天想做什麼？",
		"Clear all":                     "全部清除",
		"Your user details":             "您的使用者資料",
	},
	"ru": {
		"Todos":                         "Задачи",
		"Sign in":                       "Войти",
		"Sign up":                       "Регистрация",
		"Email":                         "Эл. почта",
		"Password":                      "Пароль",
		"Repeat password":               "Повторите пароль",
		"Forgot your password?":         "Забыли пароль?",
		"Don't have an account?":        "Нет аккаунта?",
		"Already have an account?":      "Уже есть аккаунт?",
		"Reset your password":           "Сброс пароля",
		"Send reset email":              "Отправить письмо",
		"Update password":               "Обновить пароль",
		"New password":                  "Новый пароль",
		"Logout":                        "Выйти",
		"Thank you for signing up!":     "Спасибо за регистрацию!",
		"Check your email":              "Проверьте почту",
		"Sorry, something went wrong.":  "Извините, что-то пошло не так.",
		"Passwords do not match":        "Пароли не совпадают",
		"No todos yet. Add one above!":  "Задач пока нет. Добавьте первую выше!",
		"What do you want to do today?": "Что вы хотите сделать сегодня?",
		"Clear all":                     "Очистить всё",
		"Your user details":             "Ваши данные",
	},
}

var messages = buildCatalog()

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for code, strs := range translations {
		tag := language.MustParse(code)
		for key, msg := range strs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Printer returns a printer for l backed by the app catalog.
func Printer(l locale.Locale) *message.Printer {
	return message.NewPrinter(language.Make(string(l)), message.Catalog(messages))
}
