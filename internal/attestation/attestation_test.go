package attestation_test

import (
	"time"

	"github.com/frahmantamala/asset-attestation/internal/attestation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ElapsedDays", func() {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	It("counts whole days", func() {
		Expect(attestation.ElapsedDays(start, start.Add(8*24*time.Hour))).To(Equal(8))
		Expect(attestation.ElapsedDays(start, start.Add(8*24*time.Hour-time.Minute))).To(Equal(7))
	})

	It("is zero before the start", func() {
		Expect(attestation.ElapsedDays(start, start.Add(-48*time.Hour))).To(Equal(0))
	})
})

var _ = Describe("Campaign", func() {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	It("expires only while active with a past end date", func() {
		Expect((&attestation.Campaign{Status: attestation.CampaignStatusActive, EndDate: &past}).Expired(now)).To(BeTrue())
		Expect((&attestation.Campaign{Status: attestation.CampaignStatusActive, EndDate: &future}).Expired(now)).To(BeFalse())
		Expect((&attestation.Campaign{Status: attestation.CampaignStatusActive}).Expired(now)).To(BeFalse())
		Expect((&attestation.Campaign{Status: attestation.CampaignStatusDraft, EndDate: &past}).Expired(now)).To(BeFalse())
		Expect((&attestation.Campaign{Status: attestation.CampaignStatusCancelled, EndDate: &past}).Expired(now)).To(BeFalse())
	})
})

var _ = Describe("CampaignDTO", func() {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	It("requires company ids for a company-scoped campaign", func() {
		dto := attestation.CampaignDTO{Name: "Q1", StartDate: start, TargetType: attestation.TargetCompanies}
		Expect(dto.Validate()).To(HaveOccurred())

		dto.TargetCompanyIDs = []int64{1}
		Expect(dto.Validate()).To(Succeed())
	})

	It("rejects an end date before the start", func() {
		end := start.Add(-time.Hour)
		dto := attestation.CampaignDTO{Name: "Q1", StartDate: start, EndDate: &end}
		Expect(dto.Validate()).To(HaveOccurred())
	})

	It("rejects negative thresholds", func() {
		days := -1
		dto := attestation.CampaignDTO{Name: "Q1", StartDate: start, ReminderDays: &days}
		Expect(dto.Validate()).To(HaveOccurred())
	})

	It("rejects an unknown scope", func() {
		dto := attestation.CampaignDTO{Name: "Q1", StartDate: start, TargetType: "everyone"}
		Expect(dto.Validate()).To(HaveOccurred())
	})
})

var _ = Describe("NewInviteToken", func() {
	It("returns distinct url-safe tokens", func() {
		a, err := attestation.NewInviteToken()
		Expect(err).NotTo(HaveOccurred())
		b, err := attestation.NewInviteToken()
		Expect(err).NotTo(HaveOccurred())

		Expect(a).NotTo(Equal(b))
		Expect(a).To(MatchRegexp(`^[A-Za-z0-9_-]{43}$`))
	})
})
