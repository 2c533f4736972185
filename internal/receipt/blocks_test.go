package receipt

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("assembleBlocks", func() {
	var (
		lines  []string
		blocks []Block
	)

	JustBeforeEach(func() {
		blocks = assembleBlocks(lines)
	})

	When("lines carry ordinal item markers", func() {
		BeforeEach(func() {
			lines = []string{
				"1. Молоко 3.2%",
				"2 x 450",
				"900",
				"2. Хлеб",
				"220",
			}
		})

		It("should open one block per ordinal", func() {
			Expect(blocks).To(HaveLen(2))
			Expect(blocks[0].NameHint).To(Equal("Молоко 3.2%"))
			Expect(blocks[1].NameHint).To(Equal("Хлеб"))
		})

		It("should attach the following lines to the open block", func() {
			Expect(blocks[0].RawLines).To(Equal([]string{"2 x 450", "900"}))
			Expect(blocks[1].RawLines).To(Equal([]string{"220"}))
		})
	})

	When("an unattached quantity marker appears", func() {
		BeforeEach(func() {
			lines = []string{
				"Сок яблочный 2 x 450",
				"900",
			}
		})

		It("should open a block and keep the name prefix once", func() {
			Expect(blocks).To(HaveLen(1))
			Expect(blocks[0].Text()).To(Equal("Сок яблочный 2 x 450 900"))
		})
	})

	When("a quantity line follows an ordinal block", func() {
		BeforeEach(func() {
			lines = []string{
				"1. Чай",
				"1 x 380",
				"Вода 2 x 120",
			}
		})

		It("should treat the first quantity as a continuation and the second as a new block", func() {
			Expect(blocks).To(HaveLen(2))
			Expect(blocks[0].NameHint).To(Equal("Чай"))
			Expect(blocks[0].RawLines).To(Equal([]string{"1 x 380"}))
			Expect(blocks[1].RawLines).To(Equal([]string{"2 x 120"}))
		})
	})

	When("text precedes the first item marker", func() {
		BeforeEach(func() {
			lines = []string{
				"Кассир Иванова",
				"Смена 12",
				"1. Хлеб",
				"220",
			}
		})

		It("should discard the preamble", func() {
			Expect(blocks).To(HaveLen(1))
			Expect(blocks[0].NameHint).To(Equal("Хлеб"))
		})
	})

	When("no item markers exist at all", func() {
		BeforeEach(func() {
			lines = []string{"Спасибо за покупку"}
		})

		It("should return no blocks", func() {
			Expect(blocks).To(BeEmpty())
		})
	})
})
