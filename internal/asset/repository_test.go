package asset_test

import (
	"context"

	"github.com/frahmantamala/asset-attestation/internal/asset"
	assetPostgres "github.com/frahmantamala/asset-attestation/internal/asset/postgres"
	assetDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/asset"
	"github.com/frahmantamala/asset-attestation/internal/testdb"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AssetRepository", func() {
	var (
		ctx  context.Context
		repo *assetPostgres.AssetRepository
	)

	strPtr := func(s string) *string { return &s }

	holding := func(serial, tag string) *assetDatamodel.Asset {
		a := &assetDatamodel.Asset{EmployeeEmail: "emp@x.com", AssetType: "laptop", Status: asset.StatusActive}
		if serial != "" {
			a.SerialNumber = strPtr(serial)
		}
		if tag != "" {
			a.AssetTag = strPtr(tag)
		}
		return a
	}

	BeforeEach(func() {
		ctx = context.Background()
		db, err := testdb.Open()
		Expect(err).NotTo(HaveOccurred())
		repo = assetPostgres.NewAssetRepository(db)

		Expect(repo.Create(ctx, holding("SN-1", "TAG-1"))).To(Succeed())
	})

	It("reports a taken serial number on insert", func() {
		err := repo.Create(ctx, holding("SN-1", "TAG-2"))
		Expect(err).To(MatchError(asset.ErrDuplicateSerial))
	})

	It("reports a taken asset tag on insert", func() {
		err := repo.Create(ctx, holding("SN-2", "TAG-1"))
		Expect(err).To(MatchError(asset.ErrDuplicateAssetTag))
	})

	It("reports a taken identifier on update", func() {
		other := holding("SN-2", "TAG-2")
		Expect(repo.Create(ctx, other)).To(Succeed())

		other.AssetTag = strPtr("TAG-1")
		Expect(repo.Update(ctx, other)).To(MatchError(asset.ErrDuplicateAssetTag))

		other.AssetTag = strPtr("TAG-2")
		other.SerialNumber = strPtr("SN-1")
		Expect(repo.Update(ctx, other)).To(MatchError(asset.ErrDuplicateSerial))
	})
})
