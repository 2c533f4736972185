// Package categories holds the fixed spending vocabulary: expense and
// income categories as they appear on the bot keyboard, shop-to-category
// defaults and the tag each category rolls up into on reports.
package categories

import "strings"

// Currency is the display symbol appended to formatted amounts.
const Currency = "T"

// LessonPrice is the default income amount for one tutoring lesson.
const LessonPrice = 4000

// Expense is the expense category keyboard, one row per slice.
var Expense = [][]string{
	{"Сладости", "Мясо", "Фрукты"},
	{"Молочка", "Снеки", "Прочая еда"},
	{"Столовые/готовая еда", "Кафе и рестораны", "Доставки"},
	{"Алкоголь", "Полуфабрикаты", "Напитки"},
	{"Одежда", "Обувь", "Подарки"},
	{"Другое"},
	{"Бытовая химия", "Хозтовары"},
	{"Транспорт", "Такси"},
	{"Развлечения"},
	{"Техника", "Путешествия"},
	{"Подписки", "Кредиты", "Налоги"},
	{"Коммуналка", "Интернет"},
	{"Медицина", "Услуги"},
}

// Income is the income category keyboard. Categories with a fixed amount
// carry it in parentheses; CategoryName strips the suffix back off.
var Income = [][]string{
	{"Стипендия (96600 T)", "Репетиторство (4000 T)"},
	{"Зарплата", "Другое (Доход)"},
}

// FixedIncomeAmounts maps income categories to their preset amounts.
var FixedIncomeAmounts = map[string]float64{
	"Репетиторство": 4000,
	"Стипендия":     96600,
}

// ShopMappings assigns a default category by shop name substring.
var ShopMappings = map[string]string{
	"Magnum":    "Прочая еда",
	"Small":     "Прочая еда",
	"Aimer":     "Прочая еда",
	"Северный":  "Прочая еда",
	"Fix Price": "Хозтовары",
	"Аптека":    "Медицина",
	"Europharma": "Медицина",
	"Биосфера":  "Медицина",
}

// AutoTags rolls categories up into report groups.
var AutoTags = map[string]string{
	"Сладости":             "Еда",
	"Мясо":                 "Еда",
	"Фрукты":               "Еда",
	"Молочка":              "Еда",
	"Снеки":                "Еда",
	"Прочая еда":           "Еда",
	"Алкоголь":             "Еда",
	"Полуфабрикаты":        "Еда",
	"Напитки":              "Еда",
	"Столовые/готовая еда": "Еда вне дома",
	"Кафе и рестораны":     "Еда вне дома",
	"Доставки":             "Еда вне дома",
	"Одежда":               "Товары",
	"Обувь":                "Товары",
	"Подарки":              "Разное",
	"Другое":               "Разное",
	"Техника":              "Крупное",
	"Бытовая химия":        "Хозтовары",
	"Хозтовары":            "Хозтовары",
	"Транспорт":            "Транспорт",
	"Такси":                "Транспорт",
	"Развлечения":          "Досуг",
	"Подписки":             "Обязательные",
	"Кредиты":              "Обязательные",
	"Налоги":               "Обязательные",
	"Коммуналка":           "Обязательные",
	"Интернет":             "Обязательные",
	"Путешествия":          "Крупное",
	"Медицина":             "Здоровье",
	"Услуги":               "Услуги",
}

// CalendarKeywords marks calendar events that are tutoring lessons.
var CalendarKeywords = []string{
	"Никита", "Али", "Дима", "Удаленка", "Го", "Пробный урок", "Тест",
	"Алина", "дома", "Арина", "Матвей", "Инкара",
}

// IsExpense reports whether the name is a known expense category.
func IsExpense(name string) bool {
	for _, row := range Expense {
		for _, c := range row {
			if c == name {
				return true
			}
		}
	}
	return false
}

// CategoryName strips the fixed-amount suffix from an income keyboard
// label, e.g. "Стипендия (96600 T)" becomes "Стипендия".
func CategoryName(label string) string {
	if i := strings.Index(label, " ("); i > 0 && strings.HasSuffix(label, ")") {
		base := label[:i]
		if _, ok := FixedIncomeAmounts[base]; ok {
			return base
		}
	}
	return label
}

// FixedIncomeAmount returns the preset amount for an income keyboard label,
// if it has one.
func FixedIncomeAmount(label string) (float64, bool) {
	amount, ok := FixedIncomeAmounts[CategoryName(label)]
	return amount, ok
}

// ShopCategory matches a shop name against the known shop substrings.
func ShopCategory(shopName string) (string, bool) {
	for substr, category := range ShopMappings {
		if strings.Contains(strings.ToLower(shopName), strings.ToLower(substr)) {
			return category, true
		}
	}
	return "", false
}

// Tag returns the report group for a category. Unknown categories land in
// the catch-all group.
func Tag(category string) string {
	if tag, ok := AutoTags[category]; ok {
		return tag
	}
	return "Разное"
}
