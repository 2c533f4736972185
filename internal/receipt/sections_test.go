package receipt

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("locateSections", func() {
	var (
		lines    []string
		sections Sections
		err      error
	)

	JustBeforeEach(func() {
		sections, err = locateSections(lines, genericStartAnchorRe, genericEndAnchorRe, genericTotalLineRe)
	})

	When("the receipt carries both anchors", func() {
		BeforeEach(func() {
			lines = []string{
				"ТОО Ромашка",
				"ПРОДАЖА",
				"1. Хлеб",
				"220",
				"ИТОГО: 220",
			}
		})

		It("should succeed", func() {
			Expect(err).ToNot(HaveOccurred())
		})

		It("should bound the item region between the anchors", func() {
			Expect(sections.ItemsStart).To(Equal(1))
			Expect(sections.ItemsEnd).To(Equal(4))
		})

		It("should read the declared total", func() {
			Expect(sections.DeclaredTotal).To(Equal(220.0))
		})
	})

	When("the total appears after the end anchor", func() {
		BeforeEach(func() {
			lines = []string{
				"САТУ",
				"1. Хлеб",
				"220",
				"ИТОГО",
				"Карта: 1 220",
			}
		})

		It("should keep scanning past the anchor and take the largest candidate", func() {
			Expect(err).ToNot(HaveOccurred())
			Expect(sections.DeclaredTotal).To(Equal(1220.0))
		})
	})

	When("the start anchor is missing", func() {
		BeforeEach(func() {
			lines = []string{
				"1. Хлеб",
				"220",
				"ИТОГО: 220",
			}
		})

		It("should fail with a section error", func() {
			Expect(err).To(BeAssignableToTypeOf(&SectionNotFoundError{}))
		})
	})

	When("the end anchor is missing", func() {
		BeforeEach(func() {
			lines = []string{
				"ПРОДАЖА",
				"1. Хлеб",
				"220",
			}
		})

		It("should fail with a section error", func() {
			Expect(err).To(BeAssignableToTypeOf(&SectionNotFoundError{}))
		})
	})
})
