package receipt

import (
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tyunth/finance-bot/internal/scanning"
)

// fakeOracle serves canned word boxes laid out one receipt line per row,
// with the full-text blob ahead of them.
type fakeOracle struct {
	lines []string
	err   error
}

func (f *fakeOracle) DetectText(imageData []byte, contentType string) ([]scanning.WordBox, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.lines) == 0 {
		return nil, nil
	}

	boxes := []scanning.WordBox{{Text: strings.Join(f.lines, "\n")}}
	for row, line := range f.lines {
		for col, w := range strings.Fields(line) {
			boxes = append(boxes, scanning.WordBox{
				Text: w,
				Box: [4]scanning.Vertex{
					{X: col * 100, Y: row * 100},
					{X: col*100 + 90, Y: row * 100},
					{X: col*100 + 90, Y: row*100 + 30},
					{X: col * 100, Y: row*100 + 30},
				},
			})
		}
	}
	return boxes, nil
}

func (f *fakeOracle) Close() error { return nil }

type fixedTime struct{ t time.Time }

func (f fixedTime) Now() time.Time { return f.t }

var _ = Describe("Parser", func() {
	var (
		oracle  *fakeOracle
		cfg     Config
		now     time.Time
		receipt *Receipt
		err     error
	)

	BeforeEach(func() {
		oracle = &fakeOracle{}
		cfg = Config{}
		now = time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)
	})

	JustBeforeEach(func() {
		p := NewParserWithDeps(oracle, cfg, fixedTime{t: now})
		receipt, err = p.Parse([]byte("image-bytes"), "image/jpeg")
	})

	When("the image is a Magnum screenshot", func() {
		BeforeEach(func() {
			oracle.lines = []string{
				"Magnum - Abay",
				"ул. Abay 1",
				"Состав чека",
				"1. Хлеб",
				"1 x 1 200",
				"Итого: 1200 тг",
			}
		})

		It("should succeed", func() {
			Expect(err).ToNot(HaveOccurred())
		})

		It("should resolve the single item", func() {
			Expect(receipt.Items).To(HaveLen(1))
			Expect(receipt.Items[0].Name).To(Equal("Хлеб"))
			Expect(receipt.Items[0].Price).To(Equal(1200.0))
		})

		It("should read the branch name", func() {
			Expect(receipt.ShopName).To(Equal("Magnum - Abay"))
		})

		It("should agree with the declared total", func() {
			Expect(receipt.DeclaredTotal).To(Equal(1200.0))
			Expect(receipt.ComputedTotal).To(Equal(1200.0))
			Expect(receipt.TotalWarning).To(BeEmpty())
		})

		It("should parse the same image to the same result twice", func() {
			second, err2 := NewParserWithDeps(oracle, cfg, fixedTime{t: now}).
				Parse([]byte("image-bytes"), "image/jpeg")
			Expect(err2).ToNot(HaveOccurred())
			Expect(second).To(Equal(receipt))
		})
	})

	When("the image is a generic fiscal receipt", func() {
		BeforeEach(func() {
			oracle.lines = []string{
				"ТОО Ромашка",
				"г. Петропавловск, ул. Абая 10",
				"Дата: 2024-03-05",
				"ПРОДАЖА",
				"1. Молоко 3.2%",
				"2 x 450",
				"900",
				"2. Хлеб",
				"220 220",
				"ИТОГО: 1120",
			}
		})

		It("should resolve every item", func() {
			Expect(err).ToNot(HaveOccurred())
			Expect(receipt.Items).To(Equal([]Item{
				{Name: "Молоко 3.2%", Price: 900},
				{Name: "Хлеб", Price: 220},
			}))
		})

		It("should read header fields", func() {
			Expect(receipt.ShopName).To(Equal("ТОО Ромашка"))
			Expect(receipt.Address).To(Equal("Петропавловск, ул. Абая 10"))
			Expect(receipt.Date).To(Equal(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)))
		})

		It("should not warn when totals agree", func() {
			Expect(receipt.ComputedTotal).To(Equal(1120.0))
			Expect(receipt.TotalWarning).To(BeEmpty())
		})
	})

	When("computed and declared totals disagree", func() {
		BeforeEach(func() {
			oracle.lines = []string{
				"ТОО Ромашка",
				"ПРОДАЖА",
				"1. Хлеб",
				"220",
				"ИТОГО: 1500",
			}
		})

		It("should attach a warning but still return the receipt", func() {
			Expect(err).ToNot(HaveOccurred())
			Expect(receipt.TotalWarning).To(ContainSubstring("не совпадает"))
			Expect(receipt.Items).To(HaveLen(1))
		})
	})

	When("the oracle finds no text", func() {
		BeforeEach(func() {
			oracle.lines = nil
		})

		It("should fail with ErrNoText", func() {
			Expect(err).To(MatchError(ErrNoText))
		})
	})

	When("the oracle fails", func() {
		BeforeEach(func() {
			oracle.err = errors.New("quota exceeded")
		})

		It("should wrap the error", func() {
			Expect(err).To(MatchError(ContainSubstring("quota exceeded")))
		})
	})

	When("no items region exists", func() {
		BeforeEach(func() {
			oracle.lines = []string{
				"Magnum - Abay",
				"спасибо за покупку",
			}
		})

		It("should fail with a section error carrying the raw text", func() {
			var notFound *SectionNotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(notFound.RawText).To(ContainSubstring("Magnum - Abay"))
		})
	})

	When("strict mode is on and a block cannot be priced", func() {
		BeforeEach(func() {
			cfg.StrictUnresolved = true
			oracle.lines = []string{
				"ТОО Ромашка",
				"ПРОДАЖА",
				"1. Хлеб",
				"220",
				"2. Пакет фирменный",
				"ИТОГО: 220",
			}
		})

		It("should record the unresolved block", func() {
			Expect(err).ToNot(HaveOccurred())
			Expect(receipt.Items).To(HaveLen(1))
			Expect(receipt.Unresolved).To(ConsistOf("Пакет фирменный"))
		})
	})
})
