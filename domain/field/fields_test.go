package field_test

import (
	"testing"

	"flowform/authority"
	"flowform/bizerror"
	"flowform/domain/field"
	"flowform/persistence"
	"flowform/testinfra"

	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
)

func setup(t *testing.T, testDatabase **testinfra.TestDatabase) {
	db := testinfra.StartMysqlTestDatabase("flowform")
	*testDatabase = db
	Expect(db.DS.GormDB().AutoMigrate(&field.DynamicField{}).Error).To(BeNil())

	persistence.ActiveDataSourceManager = db.DS
}

func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func TestCreateField(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("only administrators can create fields", func(t *testing.T) {
		c := field.FieldCreation{Name: "customer_name", Label: "Customer", Type: field.TypeText}
		r, err := field.CreateField(&c, testinfra.BuildSession(10, authority.RoleStandardUser))
		Expect(r).To(BeNil())
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})

	t.Run("should be able to create a field successfully", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		s := testinfra.BuildAdminSession(1)
		c := field.FieldCreation{Name: "customer_name", Label: "Customer", Type: field.TypeText, IsRequired: true}
		r, err := field.CreateField(&c, s)
		Expect(err).To(BeNil())
		Expect(r.ID).ToNot(BeZero())
		Expect(r.Name).To(Equal("customer_name"))
		Expect(r.IsArchived).To(BeFalse())
		Expect(r.CreateTime.IsZero()).To(BeFalse())

		detail, err := field.DetailField(r.ID, s)
		Expect(err).To(BeNil())
		Expect(detail.Name).To(Equal("customer_name"))
	})

	t.Run("invalid definitions are rejected", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		s := testinfra.BuildAdminSession(1)
		c := field.FieldCreation{Name: "1bad", Label: "Bad", Type: field.TypeText}
		_, err := field.CreateField(&c, s)
		Expect(err).To(Equal(bizerror.ErrFieldDefinitionInvalid))

		c = field.FieldCreation{Name: "color", Label: "Color", Type: field.TypeDropdown}
		_, err = field.CreateField(&c, s)
		Expect(err).To(Equal(bizerror.ErrFieldDefinitionInvalid))
	})
}

func TestQueryFields(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("archived fields are hidden unless asked for", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		s := testinfra.BuildAdminSession(1)
		f1, err := field.CreateField(&field.FieldCreation{Name: "alpha", Label: "Alpha", Type: field.TypeText}, s)
		Expect(err).To(BeNil())
		f2, err := field.CreateField(&field.FieldCreation{Name: "beta", Label: "Beta", Type: field.TypeText}, s)
		Expect(err).To(BeNil())

		Expect(field.ArchiveField(f1.ID, true, s)).To(BeNil())

		records, err := field.QueryFields(field.FieldQuery{}, s)
		Expect(err).To(BeNil())
		Expect(len(records)).To(Equal(1))
		Expect(records[0].ID).To(Equal(f2.ID))

		records, err = field.QueryFields(field.FieldQuery{IncludeArchived: true}, s)
		Expect(err).To(BeNil())
		Expect(len(records)).To(Equal(2))
	})

	t.Run("category filter applies", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		s := testinfra.BuildAdminSession(1)
		_, err := field.CreateField(&field.FieldCreation{Name: "alpha", Label: "Alpha", Type: field.TypeText, Category: "crm"}, s)
		Expect(err).To(BeNil())
		_, err = field.CreateField(&field.FieldCreation{Name: "beta", Label: "Beta", Type: field.TypeText, Category: "hr"}, s)
		Expect(err).To(BeNil())

		records, err := field.QueryFields(field.FieldQuery{Category: "crm"}, s)
		Expect(err).To(BeNil())
		Expect(len(records)).To(Equal(1))
		Expect(records[0].Name).To(Equal("alpha"))
	})
}

func TestUpdateField(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should update mutable attributes and bump the update time", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		s := testinfra.BuildAdminSession(1)
		created, err := field.CreateField(&field.FieldCreation{Name: "alpha", Label: "Alpha", Type: field.TypeText}, s)
		Expect(err).To(BeNil())

		updated, err := field.UpdateField(created.ID, &field.FieldUpdating{Label: "Alpha 2", IsRequired: true}, s)
		Expect(err).To(BeNil())
		Expect(updated.Label).To(Equal("Alpha 2"))
		Expect(updated.IsRequired).To(BeTrue())
		Expect(updated.Name).To(Equal("alpha"))

		_, err = field.UpdateField(404, &field.FieldUpdating{Label: "X"}, s)
		Expect(gorm.IsRecordNotFoundError(err)).To(BeTrue())
	})
}

func TestArchiveField(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("archive is a flag flip, resolvable by id afterwards", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		s := testinfra.BuildAdminSession(1)
		created, err := field.CreateField(&field.FieldCreation{Name: "alpha", Label: "Alpha", Type: field.TypeText}, s)
		Expect(err).To(BeNil())

		Expect(field.ArchiveField(created.ID, true, s)).To(BeNil())
		detail, err := field.DetailField(created.ID, s)
		Expect(err).To(BeNil())
		Expect(detail.IsArchived).To(BeTrue())

		Expect(field.ArchiveField(created.ID, false, s)).To(BeNil())
		detail, err = field.DetailField(created.ID, s)
		Expect(err).To(BeNil())
		Expect(detail.IsArchived).To(BeFalse())
	})
}
