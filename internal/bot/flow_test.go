package bot

import (
	"path/filepath"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tyunth/finance-bot/internal/dialogue"
	"github.com/tyunth/finance-bot/internal/finance"
	"github.com/tyunth/finance-bot/internal/learning"
)

var _ = Describe("Bot flows", func() {
	const (
		chatID int64 = 100
		userID int64 = 42
	)

	var (
		db    *finance.SQLiteDB
		store *learning.BoltStore
		b     *Bot
	)

	text := func(input string) string {
		replies := b.handleText(chatID, userID, input)
		Expect(replies).NotTo(BeEmpty())
		return replies[len(replies)-1].text
	}

	BeforeEach(func() {
		tmpDir := GinkgoT().TempDir()
		var err error
		db, err = finance.NewSQLiteDB(filepath.Join(tmpDir, "finance.db"))
		Expect(err).NotTo(HaveOccurred())
		store, err = learning.NewBoltStore(filepath.Join(tmpDir, "learning.db"))
		Expect(err).NotTo(HaveOccurred())
		Expect(db.EnsureMainAccount(userID)).To(Succeed())

		b = &Bot{
			db:       db,
			store:    store,
			dialogue: dialogue.NewController(db, store),
			cfg:      Config{LessonPrice: 4000},
			states:   make(map[int64]*flowState),
			lastRaw:  make(map[int64]string),
		}
	})

	AfterEach(func() {
		db.Close()
		store.Close()
	})

	Describe("expense flow", func() {
		It("should record an expense through amount, comment and category", func() {
			Expect(text("Расход")).To(Equal("Сумма расхода:"))
			Expect(text("1200")).To(Equal("Комментарий:"))
			Expect(text("такси домой")).To(Equal("Категория:"))
			Expect(text("Такси")).To(Equal("Расход записан: Такси"))

			latest, err := db.LatestTransactions(userID, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(latest).To(HaveLen(1))
			Expect(latest[0].Amount).To(Equal(1200.0))
			Expect(latest[0].Category).To(Equal("Такси"))
			Expect(latest[0].Tag).To(Equal("Транспорт"))
		})

		It("should learn the comment keyword for next time", func() {
			text("Расход")
			text("1200")
			text("такси домой")
			text("Такси")

			text("Расход")
			text("800")
			Expect(text("такси домой")).To(ContainSubstring("Узнал"))

			latest, err := db.LatestTransactions(userID, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(latest).To(HaveLen(2))
		})

		It("should reject a non-numeric amount", func() {
			text("Расход")
			Expect(text("много")).To(Equal("Число."))
		})

		It("should reject an unknown category", func() {
			text("Расход")
			text("1200")
			text("обед")
			Expect(text("Еда?")).To(Equal("Выберите категорию кнопкой."))
		})
	})

	Describe("income flow", func() {
		It("should book a fixed income without asking for the amount", func() {
			Expect(text("Доход")).To(Equal("Категория дохода:"))
			Expect(text("Стипендия (96600 T)")).To(ContainSubstring("Зачислено."))

			latest, err := db.LatestTransactions(userID, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(latest[0].Amount).To(Equal(96600.0))
			Expect(latest[0].Category).To(Equal("Стипендия"))
		})

		It("should ask for the amount of a free income", func() {
			text("Доход")
			Expect(text("Зарплата")).To(Equal("Сумма:"))
			Expect(text("150000")).To(Equal("Комментарий:"))
			Expect(text("Пропустить")).To(ContainSubstring("Доход записан."))

			latest, err := db.LatestTransactions(userID, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(latest[0].Amount).To(Equal(150000.0))
			Expect(latest[0].Comment).To(BeEmpty())
		})
	})

	Describe("transfer flow", func() {
		BeforeEach(func() {
			Expect(db.AddDeposit(userID, "Копилка", 14.5, "2026-01-01", "Kaspi")).To(Succeed())
		})

		It("should move money between accounts", func() {
			Expect(text("Перевод")).To(Equal("С какого счета переводим?"))
			Expect(text("Основной")).To(ContainSubstring("Куда?"))
			Expect(text("Копилка")).To(ContainSubstring("Сумма:"))
			Expect(text("50000")).To(Equal("Перевод выполнен."))

			balances, _, err := db.Balances(userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(balances["Копилка"].IntPart()).To(Equal(int64(50000)))
		})

		It("should insist on a known account", func() {
			text("Перевод")
			Expect(text("Чужой счет")).To(Equal("Выберите счет из меню."))
		})
	})

	Describe("cancellation", func() {
		It("should drop any flow on Отмена", func() {
			text("Расход")
			Expect(text("Отмена")).To(Equal("Отменено."))
			Expect(text("1200")).To(Equal("Используйте меню."))
		})

		It("should return to the menu on Назад", func() {
			text("Расход")
			Expect(text("Назад")).To(Equal("В меню."))
		})
	})

	Describe("edit flow", func() {
		var txID int64

		BeforeEach(func() {
			var err error
			txID, err = db.AddTransaction(finance.Transaction{
				UserID: userID, Type: finance.TypeExpense, Amount: 100,
				Category: "Другое", SourceAccount: finance.MainAccount,
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should rewrite amount, comment and category", func() {
			Expect(text(replyEdit(txID))).To(ContainSubstring("Редактирование ID"))
			text("250")
			text("такси домой")
			Expect(text("Такси")).To(Equal("Обновлено!"))

			stored, err := db.Transaction(txID, userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Amount).To(Equal(250.0))
			Expect(stored.Category).To(Equal("Такси"))
			Expect(stored.Tag).To(Equal("Транспорт"))
		})

		It("should keep the old amount when 0 is entered", func() {
			text(replyEdit(txID))
			text("0")
			text("Пропустить")
			Expect(text("Другое")).To(Equal("Обновлено!"))

			stored, err := db.Transaction(txID, userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Amount).To(Equal(100.0))
		})
	})

	Describe("debt callbacks", func() {
		BeforeEach(func() {
			Expect(db.AddDebt(userID, "Никита", "Математика", 4000, "evt-1")).To(Succeed())
		})

		It("should book income and settle the debt on pay", func() {
			debts, err := db.Debts(userID)
			Expect(err).NotTo(HaveOccurred())

			edit, _ := b.handleCallback(chatID, userID, "", replyPayDebt(debts[0].ID))
			Expect(edit).To(ContainSubstring("оплачен"))

			debts, err = db.Debts(userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(debts).To(BeEmpty())

			latest, err := db.LatestTransactions(userID, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(latest[0].Type).To(Equal(finance.TypeIncome))
			Expect(latest[0].Amount).To(Equal(4000.0))
		})

		It("should drop the debt on forgive", func() {
			debts, err := db.Debts(userID)
			Expect(err).NotTo(HaveOccurred())

			edit, _ := b.handleCallback(chatID, userID, "", replyForgiveDebt(debts[0].ID))
			Expect(edit).To(ContainSubstring("прощен"))

			debts, err = db.Debts(userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(debts).To(BeEmpty())
		})
	})

	Describe("lesson callbacks", func() {
		message := "Урок завершен: Никита математика\nСтудент: Никита\nПредмет: Математика\n\nЧто делаем?"

		It("should book lesson income when paid", func() {
			edit, _ := b.handleCallback(chatID, userID, message, "cal_paid_evt-5")
			Expect(edit).To(Equal("Оплачено: Никита математика"))

			latest, err := db.LatestTransactions(userID, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(latest[0].Category).To(Equal("Репетиторство"))
			Expect(latest[0].Amount).To(Equal(4000.0))

			processed, err := db.IsEventProcessed("evt-5")
			Expect(err).NotTo(HaveOccurred())
			Expect(processed).To(BeTrue())
		})

		It("should record a debt when unpaid", func() {
			edit, _ := b.handleCallback(chatID, userID, message, "cal_debt_evt-6")
			Expect(edit).To(Equal("В долги: Никита математика"))

			debts, err := db.Debts(userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(debts).To(HaveLen(1))
			Expect(debts[0].StudentName).To(Equal("Никита"))
		})
	})
})

func replyEdit(id int64) string        { return "edit " + strconv.FormatInt(id, 10) }
func replyPayDebt(id int64) string     { return "pay_debt_" + strconv.FormatInt(id, 10) }
func replyForgiveDebt(id int64) string { return "cancel_debt_" + strconv.FormatInt(id, 10) }
