package asset_test

import (
	"context"

	"github.com/frahmantamala/asset-attestation/internal/asset"
	assetPostgres "github.com/frahmantamala/asset-attestation/internal/asset/postgres"
	"github.com/frahmantamala/asset-attestation/internal/audit"
	assetDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/asset"
	userDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/user"
	"github.com/frahmantamala/asset-attestation/internal/testdb"
	userPostgres "github.com/frahmantamala/asset-attestation/internal/user/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("Ownership", func() {
	var (
		ctx       context.Context
		db        *gorm.DB
		assets    *assetPostgres.AssetRepository
		ownership *asset.Ownership
	)

	createUser := func(email, role string) *userDatamodel.User {
		u := &userDatamodel.User{Email: email, FirstName: "First", LastName: "Last", Role: role}
		Expect(db.Create(u).Error).To(Succeed())
		return u
	}

	createAsset := func(employeeEmail, managerEmail string) *assetDatamodel.Asset {
		a := &assetDatamodel.Asset{
			EmployeeFirstName: "Emp",
			EmployeeLastName:  "Loyee",
			EmployeeEmail:     employeeEmail,
			ManagerFirstName:  "Man",
			ManagerLastName:   "Ager",
			ManagerEmail:      managerEmail,
			AssetType:         "laptop",
			Status:            asset.StatusActive,
		}
		Expect(db.Omit("Manager").Create(a).Error).To(Succeed())
		return a
	}

	reload := func(id int64) *assetDatamodel.Asset {
		var a assetDatamodel.Asset
		Expect(db.First(&a, id).Error).To(Succeed())
		return &a
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		assets = assetPostgres.NewAssetRepository(db)
		ownership = asset.NewOwnership(assets, userPostgres.NewUserRepository(db), audit.Discard{}, discardLogger())
	})

	Describe("SyncOwnership", func() {
		It("links unowned assets once and is idempotent", func() {
			a := createAsset("employee@test.com", "")
			u := createUser("employee@test.com", "employee")

			first, err := ownership.SyncOwnership(ctx, "employee@test.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(first.OwnerUpdates).To(Equal(int64(1)))
			Expect(*reload(a.ID).OwnerID).To(Equal(u.ID))

			second, err := ownership.SyncOwnership(ctx, "employee@test.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(asset.SyncResult{}))
		})

		It("never replaces an existing owner link", func() {
			other := createUser("other@test.com", "employee")
			a := createAsset("employee@test.com", "")
			Expect(db.Model(&assetDatamodel.Asset{}).Where("id = ?", a.ID).Update("owner_id", other.ID).Error).To(Succeed())
			createUser("employee@test.com", "employee")

			result, err := ownership.SyncOwnership(ctx, "employee@test.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.OwnerUpdates).To(BeZero())
			Expect(*reload(a.ID).OwnerID).To(Equal(other.ID))
		})

		It("matches emails case-insensitively in both directions", func() {
			lower := createAsset("employee@test.com", "")
			u := createUser("employee@test.com", "employee")

			result, err := ownership.SyncOwnership(ctx, "Employee@Test.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.OwnerUpdates).To(Equal(int64(1)))
			Expect(*reload(lower.ID).OwnerID).To(Equal(u.ID))

			mixed := createAsset("MIXED@Test.com", "")
			v := createUser("mixed@test.com", "employee")
			_, err = ownership.SyncOwnership(ctx, "mixed@test.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(*reload(mixed.ID).OwnerID).To(Equal(v.ID))
		})

		It("links managed assets independently of owned ones", func() {
			a := createAsset("someone@test.com", "boss@test.com")
			boss := createUser("boss@test.com", "employee")

			result, err := ownership.SyncOwnership(ctx, "boss@test.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(asset.SyncResult{OwnerUpdates: 0, ManagerUpdates: 1}))
			Expect(*reload(a.ID).ManagerID).To(Equal(boss.ID))
		})

		It("does nothing when no user is registered", func() {
			a := createAsset("ghost@test.com", "")

			result, err := ownership.SyncOwnership(ctx, "ghost@test.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(asset.SyncResult{}))
			Expect(reload(a.ID).OwnerID).To(BeNil())
		})
	})

	Describe("UpdateManagerForEmployee", func() {
		It("rewrites manager text on assets found by email or owner link", func() {
			u := createUser("employee@test.com", "employee")
			byEmail := createAsset("employee@test.com", "old@test.com")
			drifted := createAsset("typo@test.com", "old@test.com")
			Expect(db.Model(&assetDatamodel.Asset{}).Where("id = ?", drifted.ID).Update("owner_id", u.ID).Error).To(Succeed())
			untouched := createAsset("someone@test.com", "old@test.com")

			updated, err := ownership.UpdateManagerForEmployee(ctx, "employee@test.com", &u.ID, asset.ManagerFields{
				FirstName: "New", LastName: "Boss", Email: "new@test.com",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated).To(Equal(int64(2)))

			Expect(reload(byEmail.ID).ManagerEmail).To(Equal("new@test.com"))
			Expect(reload(drifted.ID).ManagerFirstName).To(Equal("New"))
			Expect(reload(untouched.ID).ManagerEmail).To(Equal("old@test.com"))
		})

		It("clears the manager link only when the manager changes", func() {
			oldBoss := createUser("old@test.com", "manager")
			changed := createAsset("employee@test.com", "old@test.com")
			_, err := ownership.SyncOwnership(ctx, "old@test.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(*reload(changed.ID).ManagerID).To(Equal(oldBoss.ID))

			_, err = ownership.UpdateManagerForEmployee(ctx, "employee@test.com", nil, asset.ManagerFields{
				FirstName: "Renamed", LastName: "Boss", Email: "OLD@test.com",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(*reload(changed.ID).ManagerID).To(Equal(oldBoss.ID))

			_, err = ownership.UpdateManagerForEmployee(ctx, "employee@test.com", nil, asset.ManagerFields{
				FirstName: "New", LastName: "Boss", Email: "unregistered@test.com",
			})
			Expect(err).NotTo(HaveOccurred())
			after := reload(changed.ID)
			Expect(after.ManagerID).To(BeNil())
			Expect(after.ManagerEmail).To(Equal("unregistered@test.com"))
		})
	})

	Describe("manager display precedence", func() {
		It("reflects the linked manager's profile without writing the asset", func() {
			boss := createUser("boss@test.com", "manager")
			a := createAsset("employee@test.com", "boss@test.com")
			_, err := ownership.SyncOwnership(ctx, "boss@test.com")
			Expect(err).NotTo(HaveOccurred())
			before := reload(a.ID)

			Expect(db.Model(boss).Updates(map[string]interface{}{"first_name": "Renamed", "last_name": "Manager"}).Error).To(Succeed())

			stored, err := assets.GetByID(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			view := asset.FromDataModel(stored)
			Expect(view.ManagerFirstName).To(Equal("Renamed"))
			Expect(view.ManagerLastName).To(Equal("Manager"))
			Expect(reload(a.ID).UpdatedAt).To(BeTemporally("==", before.UpdatedAt))
			Expect(reload(a.ID).ManagerFirstName).To(Equal("Man"))
		})
	})

	Describe("PromoteIfManager", func() {
		It("promotes a user named as manager on an asset", func() {
			createAsset("employee@test.com", "Boss@Test.com")
			boss := createUser("boss@test.com", "employee")

			promoted, err := ownership.PromoteIfManager(ctx, boss)
			Expect(err).NotTo(HaveOccurred())
			Expect(promoted).To(BeTrue())
			Expect(boss.Role).To(Equal("manager"))

			again, err := ownership.PromoteIfManager(ctx, boss)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(BeFalse())
		})

		It("promotes a user named as another user's manager", func() {
			boss := createUser("boss@test.com", "coordinator")
			report := createUser("report@test.com", "employee")
			Expect(db.Model(report).Update("manager_email", "boss@test.com").Error).To(Succeed())

			promoted, err := ownership.PromoteByEmail(ctx, "BOSS@test.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(promoted).To(BeTrue())

			var stored userDatamodel.User
			Expect(db.First(&stored, boss.ID).Error).To(Succeed())
			Expect(stored.Role).To(Equal("manager"))
		})

		It("never touches admins", func() {
			createAsset("employee@test.com", "admin@test.com")
			admin := createUser("admin@test.com", "admin")

			promoted, err := ownership.PromoteIfManager(ctx, admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(promoted).To(BeFalse())
			Expect(admin.Role).To(Equal("admin"))
		})

		It("leaves users who manage nothing alone", func() {
			u := createUser("plain@test.com", "employee")

			promoted, err := ownership.PromoteIfManager(ctx, u)
			Expect(err).NotTo(HaveOccurred())
			Expect(promoted).To(BeFalse())
		})
	})
})
