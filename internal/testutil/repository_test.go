package testutil

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FakeRepository", func() {
	It("leaves the listing untouched while siblings are pending", func() {
		repo := NewFakeRepository()
		repo.Seed("listing-1", []string{"file-1", "file-2"})

		activated, err := repo.CompleteFileValidation(context.Background(), "file-1", "listing-1", nil, nil, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(activated).To(BeFalse())
		Expect(repo.Listings["listing-1"].Status).To(Equal("PENDING_VALIDATION"))
	})

	It("activates the listing once every sibling is valid", func() {
		repo := NewFakeRepository()
		repo.Seed("listing-1", []string{"file-1", "file-2"})

		_, err := repo.CompleteFileValidation(context.Background(), "file-1", "listing-1", nil, nil, nil, nil)
		Expect(err).NotTo(HaveOccurred())

		activated, err := repo.CompleteFileValidation(context.Background(), "file-2", "listing-1", nil, nil, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(activated).To(BeTrue())
		Expect(repo.Listings["listing-1"].Status).To(Equal("ACTIVE"))
	})

	It("rejects the listing if any sibling failed", func() {
		repo := NewFakeRepository()
		repo.Seed("listing-1", []string{"file-1", "file-2"})

		Expect(repo.MarkFileInvalid(context.Background(), "file-1", "bad mime")).To(Succeed())

		activated, err := repo.CompleteFileValidation(context.Background(), "file-2", "listing-1", nil, nil, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(activated).To(BeFalse())
		Expect(repo.Listings["listing-1"].Status).To(Equal("REJECTED"))
	})
})
