package receipt

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("resolvePrice", func() {
	var (
		block      Block
		strategies []priceStrategy
		price      float64
		ok         bool
	)

	BeforeEach(func() {
		strategies = []priceStrategy{strategyFormula, strategyDuplicates, strategyPositional}
	})

	JustBeforeEach(func() {
		price, ok = resolvePrice(block, strategies)
	})

	When("a quantity formula checks out against a total in the block", func() {
		BeforeEach(func() {
			block = Block{NameHint: "Сок яблочный", RawLines: []string{"2 x 450", "900"}}
		})

		It("should take the formula total", func() {
			Expect(ok).To(BeTrue())
			Expect(price).To(Equal(900.0))
		})
	})

	When("the formula total is within reading tolerance", func() {
		BeforeEach(func() {
			block = Block{NameHint: "Сыр", RawLines: []string{"2 x 450", "903"}}
		})

		It("should accept the printed total", func() {
			Expect(ok).To(BeTrue())
			Expect(price).To(Equal(903.0))
		})
	})

	When("the quantity is one and no separate total is printed", func() {
		BeforeEach(func() {
			block = Block{NameHint: "Чай", RawLines: []string{"1 x 380"}}
		})

		It("should take the unit price itself", func() {
			Expect(ok).To(BeTrue())
			Expect(price).To(Equal(380.0))
		})
	})

	When("a value repeats across the block", func() {
		BeforeEach(func() {
			block = Block{NameHint: "Хлеб", RawLines: []string{"220", "220"}}
		})

		It("should take the repeated value", func() {
			Expect(ok).To(BeTrue())
			Expect(price).To(Equal(220.0))
		})
	})

	When("only position remains", func() {
		BeforeEach(func() {
			block = Block{NameHint: "Вода минеральная", RawLines: []string{"450"}}
		})

		It("should take the last plausible number", func() {
			Expect(ok).To(BeTrue())
			Expect(price).To(Equal(450.0))
		})
	})

	When("the formula failed and its unit price trails the block", func() {
		BeforeEach(func() {
			block = Block{NameHint: "Мясо", RawLines: []string{"610", "2 x 300"}}
		})

		It("should skip the unit price when scanning positionally", func() {
			Expect(ok).To(BeTrue())
			Expect(price).To(Equal(610.0))
		})
	})

	When("a trailing number is below the noise floor", func() {
		BeforeEach(func() {
			block = Block{NameHint: "Пакет", RawLines: []string{"450 2"}}
		})

		It("should skip it positionally", func() {
			Expect(ok).To(BeTrue())
			Expect(price).To(Equal(450.0))
		})
	})

	When("no plausible number exists", func() {
		BeforeEach(func() {
			block = Block{NameHint: "Скидка", RawLines: []string{"спасибо"}}
		})

		It("should report failure", func() {
			Expect(ok).To(BeFalse())
		})
	})

	When("the currency suffix strategy leads the cascade", func() {
		BeforeEach(func() {
			strategies = []priceStrategy{strategyCurrencySuffix, strategyPositional}
			block = Block{NameHint: "Хлеб", RawLines: []string{"220 тг", "999"}}
		})

		It("should take the suffixed value", func() {
			Expect(ok).To(BeTrue())
			Expect(price).To(Equal(220.0))
		})
	})
})

var _ = Describe("cleanItemName", func() {
	When("the block carries quantity markers and the resolved price", func() {
		It("should strip both and collapse whitespace", func() {
			b := Block{NameHint: "Молоко 3.2%", RawLines: []string{"2 x 450", "900"}}
			Expect(cleanItemName(b, 900)).To(Equal("Молоко 3.2%"))
		})
	})

	When("the price carries a currency suffix", func() {
		It("should strip the suffixed price", func() {
			b := Block{NameHint: "Хлеб", RawLines: []string{"220 тг"}}
			Expect(cleanItemName(b, 220)).To(Equal("Хлеб"))
		})
	})

	When("a stray trailing number remains", func() {
		It("should strip a single trailing number", func() {
			b := Block{NameHint: "Хлеб 220", RawLines: []string{"220"}}
			Expect(cleanItemName(b, 220)).To(Equal("Хлеб"))
		})
	})
})
