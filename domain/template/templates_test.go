package template_test

import (
	"testing"
	"time"

	"flowform/authority"
	"flowform/bizerror"
	"flowform/domain/field"
	"flowform/domain/table"
	"flowform/domain/template"
	"flowform/persistence"
	"flowform/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func setup(t *testing.T, testDatabase **testinfra.TestDatabase) {
	db := testinfra.StartMysqlTestDatabase("flowform")
	*testDatabase = db
	Expect(db.DS.GormDB().AutoMigrate(&field.DynamicField{}, &table.DynamicTable{},
		&template.TaskTemplate{}, &template.WorkflowTemplate{}).Error).To(BeNil())

	persistence.ActiveDataSourceManager = db.DS
}

func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func TestCreateTaskTemplate(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("only administrators can create task templates", func(t *testing.T) {
		c := template.TaskTemplateCreation{Name: "review"}
		r, err := template.CreateTaskTemplate(c, testinfra.BuildSession(10, authority.RoleTaskExecutor))
		Expect(r).To(BeNil())
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})

	t.Run("a referenced dynamic table must exist and not be archived", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		s := testinfra.BuildAdminSession(1)
		_, err := template.CreateTaskTemplate(template.TaskTemplateCreation{Name: "review", DynamicTableID: 404}, s)
		Expect(err).To(Equal(bizerror.ErrNotFound))

		f, err := field.CreateField(&field.FieldCreation{Name: "title", Label: "Title", Type: field.TypeText}, s)
		Expect(err).To(BeNil())
		tbl, err := table.CreateTable(&table.TableCreation{Name: "notes", Label: "Notes",
			FieldIDs: table.FieldIDList{f.ID}}, s)
		Expect(err).To(BeNil())
		Expect(table.ArchiveTable(tbl.ID, true, s)).To(BeNil())

		_, err = template.CreateTaskTemplate(template.TaskTemplateCreation{Name: "review", DynamicTableID: tbl.ID}, s)
		Expect(err).To(Equal(bizerror.ErrArchived))
	})

	t.Run("should create a task template with an optional due date offset", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		s := testinfra.BuildAdminSession(1)
		offset := 3
		r, err := template.CreateTaskTemplate(template.TaskTemplateCreation{Name: "review",
			Category: "qa", AssignedRoleType: "TaskExecutor", DueDateOffsetDays: &offset}, s)
		Expect(err).To(BeNil())
		Expect(r.ID).ToNot(BeZero())
		Expect(*r.DueDateOffsetDays).To(Equal(3))
		Expect(r.AssignedRoleType).To(Equal(authority.RoleTaskExecutor))
	})
}

func TestDueDateOf(t *testing.T) {
	RegisterTestingT(t)

	t.Run("due date is the start plus the configured offset, zero without one", func(t *testing.T) {
		start := types.TimestampOfDate(2021, 6, 1, 9, 0, 0, 0, time.Local)

		offset := 2
		withOffset := template.TaskTemplate{DueDateOffsetDays: &offset}
		Expect(withOffset.DueDateOf(start).Time()).To(Equal(start.Time().Add(48 * time.Hour)))

		withoutOffset := template.TaskTemplate{}
		Expect(withoutOffset.DueDateOf(start).IsZero()).To(BeTrue())
	})
}

func TestCreateWorkflowTemplate(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("a workflow template needs at least one resolvable task template", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		s := testinfra.BuildAdminSession(1)
		_, err := template.CreateWorkflowTemplate(template.WorkflowTemplateCreation{Name: "onboarding"}, s)
		Expect(err).To(Equal(bizerror.ErrEmptyComposition))

		_, err = template.CreateWorkflowTemplate(template.WorkflowTemplateCreation{Name: "onboarding",
			TaskTemplateIDs: []types.ID{404}}, s)
		Expect(err).To(Equal(bizerror.ErrNotFound))

		tt, err := template.CreateTaskTemplate(template.TaskTemplateCreation{Name: "review"}, s)
		Expect(err).To(BeNil())
		Expect(template.ArchiveTaskTemplate(tt.ID, true, s)).To(BeNil())
		_, err = template.CreateWorkflowTemplate(template.WorkflowTemplateCreation{Name: "onboarding",
			TaskTemplateIDs: []types.ID{tt.ID}}, s)
		Expect(err).To(Equal(bizerror.ErrArchived))
	})

	t.Run("detail resolves task templates in composition order", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		s := testinfra.BuildAdminSession(1)
		first, err := template.CreateTaskTemplate(template.TaskTemplateCreation{Name: "prepare"}, s)
		Expect(err).To(BeNil())
		second, err := template.CreateTaskTemplate(template.TaskTemplateCreation{Name: "review"}, s)
		Expect(err).To(BeNil())

		created, err := template.CreateWorkflowTemplate(template.WorkflowTemplateCreation{Name: "onboarding",
			TaskTemplateIDs: []types.ID{second.ID, first.ID}}, s)
		Expect(err).To(BeNil())

		detail, err := template.DetailWorkflowTemplate(created.ID, s)
		Expect(err).To(BeNil())
		Expect(len(detail.TaskTemplates)).To(Equal(2))
		Expect(detail.TaskTemplates[0].Name).To(Equal("review"))
		Expect(detail.TaskTemplates[1].Name).To(Equal("prepare"))
	})
}
