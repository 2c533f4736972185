package dashboard

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/tyunth/finance-bot/internal/finance"
)

func TestDashboard(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Dashboard Suite")
}

var _ = Describe("Server", func() {
	const userID int64 = 42

	var (
		db          *finance.SQLiteDB
		auth        BasicAuth
		server      *Server
		ghttpServer *ghttp.Server
		txID        int64
	)

	BeforeEach(func() {
		tmpDir := GinkgoT().TempDir()
		var err error
		db, err = finance.NewSQLiteDB(filepath.Join(tmpDir, "finance.db"))
		Expect(err).NotTo(HaveOccurred())

		txID, err = db.AddTransaction(finance.Transaction{
			UserID:        userID,
			Type:          finance.TypeExpense,
			Amount:        1200,
			Category:      "Прочая еда",
			Tag:           "Еда",
			Comment:       "Чек Magnum",
			SourceAccount: finance.MainAccount,
		})
		Expect(err).NotTo(HaveOccurred())

		auth = BasicAuth{}
		server = NewServerWithMux(db, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP, server.ServeHTTP, server.ServeHTTP)
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		if db != nil {
			db.Close()
		}
	})

	Describe("GET /transactions", func() {
		It("should return the ledger as JSON", func() {
			resp, err := http.Get(ghttpServer.URL() + "/transactions")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var transactions []finance.Transaction
			Expect(json.NewDecoder(resp.Body).Decode(&transactions)).To(Succeed())
			Expect(transactions).To(HaveLen(1))
			Expect(transactions[0].Amount).To(Equal(1200.0))
		})
	})

	Describe("GET /categories", func() {
		It("should return the distinct category names", func() {
			resp, err := http.Get(ghttpServer.URL() + "/categories")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var categories []string
			Expect(json.NewDecoder(resp.Body).Decode(&categories)).To(Succeed())
			Expect(categories).To(Equal([]string{"Прочая еда"}))
		})
	})

	Describe("POST /transactions/edit", func() {
		post := func(body string) *http.Response {
			resp, err := http.Post(
				ghttpServer.URL()+"/transactions/edit",
				"application/json",
				bytes.NewBufferString(body),
			)
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		It("should update the transaction", func() {
			resp := post(`{"id":` + jsonInt(txID) + `,"amount":250,"category":"Такси","comment":"такси домой","tag":"Транспорт"}`)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			stored, err := db.Transaction(txID, userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Amount).To(Equal(250.0))
			Expect(stored.Category).To(Equal("Такси"))
			Expect(stored.Comment).To(Equal("такси домой"))
		})

		It("should reject a body with missing fields", func() {
			resp := post(`{"id":` + jsonInt(txID) + `}`)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should report an unknown transaction id", func() {
			resp := post(`{"id":99999,"amount":250,"category":"Такси","comment":""}`)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
			server = NewServerWithMux(db, auth, http.NewServeMux())
			ghttpServer.Close()
			ghttpServer = ghttp.NewServer()
			ghttpServer.AppendHandlers(server.ServeHTTP, server.ServeHTTP)
		})

		It("should reject requests without credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/transactions")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("should accept valid credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/transactions", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Authorization",
				"Basic "+base64.StdEncoding.EncodeToString([]byte("admin:secret")))

			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("CORS preflight", func() {
		It("should answer OPTIONS with the allow headers", func() {
			req, err := http.NewRequest("OPTIONS", ghttpServer.URL()+"/transactions", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})
})

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
