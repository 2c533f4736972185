package learning

import (
	"path/filepath"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestLearning(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Learning Suite")
}

var _ = Describe("BoltStore", func() {
	var store *BoltStore

	BeforeEach(func() {
		tmpDir := GinkgoT().TempDir()
		var err error
		store, err = NewBoltStore(filepath.Join(tmpDir, "learning.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	Describe("LearnProduct", func() {
		When("a product has been learned", func() {
			BeforeEach(func() {
				Expect(store.LearnProduct("Молоко 3.2%", "Молочка")).To(Succeed())
			})

			It("should recall its category", func() {
				category, ok := store.ProductCategory("Молоко 3.2%")
				Expect(ok).To(BeTrue())
				Expect(category).To(Equal("Молочка"))
			})

			It("should recall regardless of case and surrounding spaces", func() {
				category, ok := store.ProductCategory("  МОЛОКО 3.2% ")
				Expect(ok).To(BeTrue())
				Expect(category).To(Equal("Молочка"))
			})

			When("the same product is learned again", func() {
				BeforeEach(func() {
					Expect(store.LearnProduct("молоко 3.2% ", "Снеки")).To(Succeed())
				})

				It("should keep only the latest category", func() {
					category, ok := store.ProductCategory("Молоко 3.2%")
					Expect(ok).To(BeTrue())
					Expect(category).To(Equal("Снеки"))
				})
			})
		})

		When("a product was never learned", func() {
			It("should report a miss", func() {
				_, ok := store.ProductCategory("Хлеб")
				Expect(ok).To(BeFalse())
			})
		})
	})

	Describe("LearnComment", func() {
		When("a short comment keyword has been learned", func() {
			BeforeEach(func() {
				Expect(store.LearnComment("такси", "Транспорт")).To(Succeed())
			})

			It("should recall its category", func() {
				category, ok := store.CommentCategory("Такси")
				Expect(ok).To(BeTrue())
				Expect(category).To(Equal("Транспорт"))
			})
		})

		When("the comment is too long to be a keyword", func() {
			var long string

			BeforeEach(func() {
				long = strings.Repeat("о", 60)
				Expect(store.LearnComment(long, "Прочее")).To(Succeed())
			})

			It("should not remember it", func() {
				_, ok := store.CommentCategory(long)
				Expect(ok).To(BeFalse())
			})
		})
	})
})
