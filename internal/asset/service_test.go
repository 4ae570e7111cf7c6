package asset_test

import (
	"context"

	"github.com/frahmantamala/asset-attestation/internal"
	"github.com/frahmantamala/asset-attestation/internal/asset"
	assetPostgres "github.com/frahmantamala/asset-attestation/internal/asset/postgres"
	"github.com/frahmantamala/asset-attestation/internal/audit"
	userDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/user"
	coreUser "github.com/frahmantamala/asset-attestation/internal/core/user"
	"github.com/frahmantamala/asset-attestation/internal/testdb"
	userPostgres "github.com/frahmantamala/asset-attestation/internal/user/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

type recordingAudit struct {
	entries []audit.Entry
}

func (r *recordingAudit) Record(_ context.Context, entry audit.Entry) {
	r.entries = append(r.entries, entry)
}

var _ = Describe("Service", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		service *asset.Service
		audits  *recordingAudit
	)

	strPtr := func(s string) *string { return &s }

	createUser := func(email string) *userDatamodel.User {
		u := &userDatamodel.User{Email: email, FirstName: "Reg", LastName: "Istered", Role: "employee"}
		Expect(db.Create(u).Error).To(Succeed())
		return u
	}

	laptop := func(employeeEmail, managerEmail, serial string) asset.CreateAssetDTO {
		return asset.CreateAssetDTO{
			EmployeeFirstName: "Jane",
			EmployeeLastName:  "Doe",
			EmployeeEmail:     employeeEmail,
			ManagerFirstName:  "Mo",
			ManagerLastName:   "Boss",
			ManagerEmail:      managerEmail,
			AssetType:         "laptop",
			Make:              "Acme",
			Model:             "X1",
			SerialNumber:      strPtr(serial),
		}
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		audits = &recordingAudit{}
		service = asset.NewService(
			assetPostgres.NewAssetRepository(db),
			userPostgres.NewUserRepository(db),
			audits,
			discardLogger(),
		)
	})

	Describe("CreateAsset", func() {
		It("links owner and manager to registered users", func() {
			owner := createUser("jane@test.com")
			boss := createUser("boss@test.com")

			a, err := service.CreateAsset(ctx, laptop("Jane@Test.com", "boss@test.com", "SN-1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(*a.OwnerID).To(Equal(owner.ID))
			Expect(*a.ManagerID).To(Equal(boss.ID))
			Expect(a.Status).To(Equal(asset.StatusActive))
			Expect(a.ManagerFirstName).To(Equal("Reg"))
			Expect(audits.entries).To(HaveLen(1))
			Expect(audits.entries[0].Action).To(Equal(audit.ActionCreate))
		})

		It("keeps unregistered identities as text", func() {
			a, err := service.CreateAsset(ctx, laptop("ghost@test.com", "ghost-boss@test.com", "SN-2"))
			Expect(err).NotTo(HaveOccurred())
			Expect(a.OwnerID).To(BeNil())
			Expect(a.ManagerID).To(BeNil())
			Expect(a.ManagerFirstName).To(Equal("Mo"))
		})

		It("rejects duplicate serial numbers", func() {
			_, err := service.CreateAsset(ctx, laptop("a@test.com", "", "SN-DUP"))
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CreateAsset(ctx, laptop("b@test.com", "", " SN-DUP "))
			Expect(err).To(MatchError(asset.ErrDuplicateSerial))
		})

		It("rejects duplicate asset tags", func() {
			first := laptop("a@test.com", "", "SN-A")
			first.AssetTag = strPtr("TAG-1")
			_, err := service.CreateAsset(ctx, first)
			Expect(err).NotTo(HaveOccurred())

			second := laptop("b@test.com", "", "SN-B")
			second.AssetTag = strPtr("TAG-1")
			_, err = service.CreateAsset(ctx, second)
			Expect(err).To(MatchError(asset.ErrDuplicateAssetTag))
		})

		It("allows several assets without serial numbers", func() {
			dto := laptop("a@test.com", "", "")
			_, err := service.CreateAsset(ctx, dto)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.CreateAsset(ctx, dto)
			Expect(err).NotTo(HaveOccurred())
		})

		It("validates input", func() {
			dto := laptop("not-an-email", "", "SN-3")
			dto.Status = "stolen"

			_, err := service.CreateAsset(ctx, dto)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(appErr.Details.(internal.ValidationErrors).Errors).To(HaveLen(2))
		})
	})

	Describe("UpdateAsset", func() {
		It("re-resolves the owner only when the employee email changes", func() {
			a, err := service.CreateAsset(ctx, laptop("ghost@test.com", "", "SN-U"))
			Expect(err).NotTo(HaveOccurred())
			newOwner := createUser("new@test.com")

			dto := laptop("new@test.com", "", "SN-U")
			updated, err := service.UpdateAsset(ctx, a.ID, dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(*updated.OwnerID).To(Equal(newOwner.ID))
		})

		It("returns not found for unknown assets", func() {
			_, err := service.UpdateAsset(ctx, 999, laptop("a@test.com", "", "SN-X"))
			Expect(err).To(MatchError(asset.ErrAssetNotFound))
		})
	})

	Describe("visibility", func() {
		var employee, manager, outsider *userDatamodel.User

		BeforeEach(func() {
			employee = createUser("emp@test.com")
			manager = createUser("mgr@test.com")
			outsider = createUser("out@test.com")

			_, err := service.CreateAsset(ctx, laptop("emp@test.com", "mgr@test.com", "SN-V1"))
			Expect(err).NotTo(HaveOccurred())
			_, err = service.CreateAsset(ctx, laptop("other@test.com", "", "SN-V2"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("shows employees only their own assets", func() {
			list, err := service.ListAssets(ctx, asset.Viewer{ID: employee.ID, Email: employee.Email, Role: coreUser.RoleEmployee}, nil, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(list[0].EmployeeEmail).To(Equal("emp@test.com"))
		})

		It("shows managers the assets they manage", func() {
			list, err := service.ListAssets(ctx, asset.Viewer{ID: manager.ID, Email: manager.Email, Role: coreUser.RoleManager}, nil, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
		})

		It("shows admins and coordinators everything", func() {
			list, err := service.ListAssets(ctx, asset.Viewer{ID: outsider.ID, Email: outsider.Email, Role: coreUser.RoleCoordinator}, nil, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))
		})

		It("forbids fetching someone else's asset", func() {
			list, err := service.ListAssets(ctx, asset.Viewer{Role: coreUser.RoleAdmin}, nil, "")
			Expect(err).NotTo(HaveOccurred())

			_, err = service.GetAsset(ctx, asset.Viewer{ID: outsider.ID, Email: outsider.Email, Role: coreUser.RoleEmployee}, list[0].ID)
			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
		})

		It("lets owners change the status of their asset", func() {
			viewer := asset.Viewer{ID: employee.ID, Email: employee.Email, Role: coreUser.RoleEmployee}
			list, err := service.ListAssets(ctx, viewer, nil, "")
			Expect(err).NotTo(HaveOccurred())

			updated, err := service.UpdateAssetStatus(ctx, viewer, list[0].ID, asset.UpdateStatusDTO{Status: asset.StatusLost})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(asset.StatusLost))
		})
	})
})
