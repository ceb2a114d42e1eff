// Package i18n holds the bot's translation tables and template helpers.
// Missing keys fall back to English; translation completeness is not
// guaranteed for every language.
package i18n

import (
	"fmt"
	"strings"
)

const DefaultLanguage = "en"

// Languages maps the selection-menu labels to language codes.
var Languages = map[string]string{
	"🇬🇧 English": "en",
	"🇷🇺 Русский": "ru",
	"🇰🇿 Қазақша": "kz",
}

// T returns the translation for key in lang, falling back to English and
// finally to the key itself.
func T(lang, key string) string {
	if tbl, ok := tables[lang]; ok {
		if s, ok := tbl[key]; ok {
			return s
		}
	}
	if s, ok := tables[DefaultLanguage][key]; ok {
		return s
	}
	return key
}

// Tf renders the translation for key with {name} placeholders substituted.
func Tf(lang, key string, args map[string]any) string {
	s := T(lang, key)
	for k, v := range args {
		s = strings.ReplaceAll(s, "{"+k+"}", fmt.Sprint(v))
	}
	return s
}

// All returns every translation of key across languages. Used to match
// reply-keyboard button presses regardless of the sender's language.
func All(key string) []string {
	out := make([]string, 0, len(tables))
	seen := make(map[string]struct{})
	for _, tbl := range tables {
		if s, ok := tbl[key]; ok {
			if _, dup := seen[s]; !dup {
				seen[s] = struct{}{}
				out = append(out, s)
			}
		}
	}
	return out
}

var tables = map[string]map[string]string{
	"en": {
		"analyse":     "🔬 Analysis",
		"payment":     "💰 Top up balance",
		"instruction": "📖 Instruction",
		"info":        "ℹ️ Info",
		"menu":        "🔗Menu",
		"register":    "📝Register",
		"correct":     "✅ Correct",

		"ask_name":           "Please enter your <b>name</b>.\nSend /cancel to abort registration.",
		"ask_phone":          "Now enter your <b>phone number</b> in international format.",
		"invalid_name":       "That doesn't look like a name. Please try again.",
		"invalid_phone":      "That doesn't look like a valid phone number. Please try again.",
		"confirmation":       "Name: {name}\nPhone: {formatted_phone_number}\nIs everything correct?",
		"final_confirmation": "Please confirm your details with the button below, or send /cancel.",
		"thanks_register":    "Thank you for registering! You received 500 welcome points.",
		"cancel_register":    "Registration cancelled.",
		"already_register":   "You are already registered.",
		"welcome_back":       "Welcome back! Send a document or photo of your lab results to analyse.",
		"welcome_register":   "Welcome! Please register to get your welcome points.",
		"language_set":       "Language saved.",
		"choose_language":    "Please choose your language:",

		"menu_text":          "Choose an option from the menu below.",
		"payment_text":       "Choose a package to top up your balance:",
		"info_message":       "Your current balance: {points} points.\nAnalysis of one PDF page or one photo costs 50 points.",
		"help_text":          "Send a PDF document or a photo of your lab results and I will interpret them for you.",
		"analysis_explained": "Send your lab results as a photo or a PDF file. Short videos below show how:",
		"please_follow":      "Please use the menu buttons.",
		"send_pdf":           "Please send a PDF document or a photo.",
		"send_one":           "Please send files one at a time.",

		"Send_photo":       "📷 How to send a photo",
		"Send_pdf_ios":     "📄 How to send a PDF (iOS)",
		"Send_pdf_android": "📄 How to send a PDF (Android)",
		"Send_screenshot":  "🖼 How to send a screenshot",

		"too_large":      "The file is too large. Maximum size is <b>20 MB</b>.",
		"insufficient":   "This analysis requires {required_points} points, but you only have {insufficient_points}. You need {additional_points} more.",
		"premium":        "This analysis requires {required_points} points, but you only have {insufficient_points}. Top up {additional_points} points to continue.",
		"data_analyzing": "Analysing your document, this can take a minute…",
		"last_message":   "Done! {required_points} points were charged. Current balance: {current_points} points.",

		"error_api":     "The analysis service is temporarily unavailable. Please try again later. No points were charged.",
		"error_generic": "Something went wrong while processing your document. No points were charged.",

		"successful_payment": "Payment received! {points_based_on_product_id} points were added to your balance.",
		"product_500_name":   "500 points",
		"product_1000_name":  "1000 points",
		"product_title":      "Top up: {points} points",
		"pay_button":         "Click to pay via the secure payment window",
		"pay_prompt":         "Please click the button below to proceed to payment:",

		"for_gpt":   "English",
		"signature": "\n\n<i>This interpretation is generated automatically and is not a medical diagnosis. Consult a doctor.</i>",
	},
	"ru": {
		"analyse":     "🔬 Анализировать",
		"payment":     "💰 Пополнить баланс",
		"instruction": "📖 Инструкция",
		"info":        "ℹ️ Инфо",
		"menu":        "🔗Меню",
		"register":    "📝Регистрация",
		"correct":     "✅ Верно",

		"ask_name":           "Пожалуйста, введите ваше <b>имя</b>.\nОтправьте /cancel для отмены регистрации.",
		"ask_phone":          "Теперь введите <b>номер телефона</b> в международном формате.",
		"invalid_name":       "Это не похоже на имя. Попробуйте ещё раз.",
		"invalid_phone":      "Это не похоже на корректный номер телефона. Попробуйте ещё раз.",
		"confirmation":       "Имя: {name}\nТелефон: {formatted_phone_number}\nВсё верно?",
		"final_confirmation": "Подтвердите данные кнопкой ниже или отправьте /cancel.",
		"thanks_register":    "Спасибо за регистрацию! Вам начислено 500 приветственных баллов.",
		"cancel_register":    "Регистрация отменена.",
		"already_register":   "Вы уже зарегистрированы.",
		"welcome_back":       "С возвращением! Отправьте документ или фото результатов анализов.",
		"welcome_register":   "Добро пожаловать! Зарегистрируйтесь, чтобы получить приветственные баллы.",
		"language_set":       "Язык сохранён.",
		"choose_language":    "Пожалуйста, выберите язык:",

		"menu_text":          "Выберите пункт меню.",
		"payment_text":       "Выберите пакет для пополнения баланса:",
		"info_message":       "Ваш баланс: {points} баллов.\nАнализ одной страницы PDF или одного фото стоит 50 баллов.",
		"help_text":          "Отправьте PDF-документ или фото результатов анализов, и я их расшифрую.",
		"analysis_explained": "Отправьте результаты анализов фотографией или PDF-файлом. Короткие видео ниже покажут как:",
		"please_follow":      "Пожалуйста, пользуйтесь кнопками меню.",
		"send_pdf":           "Пожалуйста, отправьте PDF-документ или фото.",
		"send_one":           "Пожалуйста, отправляйте файлы по одному.",

		"Send_photo":       "📷 Как отправить фото",
		"Send_pdf_ios":     "📄 Как отправить PDF (iOS)",
		"Send_pdf_android": "📄 Как отправить PDF (Android)",
		"Send_screenshot":  "🖼 Как отправить скриншот",

		"too_large":      "Файл слишком большой. Максимальный размер — <b>20 МБ</b>.",
		"insufficient":   "Для этого анализа нужно {required_points} баллов, а у вас {insufficient_points}. Не хватает {additional_points}.",
		"premium":        "Для этого анализа нужно {required_points} баллов, а у вас {insufficient_points}. Пополните баланс на {additional_points} баллов.",
		"data_analyzing": "Анализирую документ, это может занять минуту…",
		"last_message":   "Готово! Списано {required_points} баллов. Текущий баланс: {current_points} баллов.",

		"error_api":     "Сервис анализа временно недоступен. Попробуйте позже. Баллы не списаны.",
		"error_generic": "Что-то пошло не так при обработке документа. Баллы не списаны.",

		"successful_payment": "Оплата получена! На баланс зачислено {points_based_on_product_id} баллов.",
		"product_500_name":   "500 баллов",
		"product_1000_name":  "1000 баллов",
		"product_title":      "Пополнение: {points} баллов",
		"pay_button":         "Нажмите, чтобы оплатить через защищённое окно оплаты",
		"pay_prompt":         "Пожалуйста, нажмите кнопку ниже, чтобы перейти к оплате:",

		"for_gpt":   "Russian",
		"signature": "\n\n<i>Эта расшифровка сформирована автоматически и не является медицинским диагнозом. Проконсультируйтесь с врачом.</i>",
	},
	"kz": {
		"analyse":     "🔬 Талдау",
		"payment":     "💰 Баланс толтыру",
		"instruction": "📖 Нұсқаулық",
		"info":        "ℹ️ Ақпарат",
		"menu":        "🔗Мәзір",
		"register":    "📝Тіркелу",
		"correct":     "✅ Дұрыс",

		"language_set":    "Тіл сақталды.",
		"choose_language": "Тілді таңдаңыз:",
		"data_analyzing":  "Құжат талдануда, бұл бір минутқа созылуы мүмкін…",
		"too_large":       "Файл тым үлкен. Ең үлкен өлшемі — <b>20 МБ</b>.",
		"send_pdf":        "PDF құжатын немесе фото жіберіңіз.",
		"send_one":        "Файлдарды бір-бірлеп жіберіңіз.",
		"info_message":    "Сіздің балансыңыз: {points} ұпай.\nБір PDF бетін немесе бір фотоны талдау 50 ұпай тұрады.",
		"last_message":    "Дайын! {required_points} ұпай алынды. Ағымдағы баланс: {current_points} ұпай.",

		"for_gpt":   "Kazakh",
		"signature": "\n\n<i>Бұл түсіндірме автоматты түрде жасалған және медициналық диагноз емес. Дәрігерге жүгініңіз.</i>",
	},
}
