package account_test

import (
	"os"
	"testing"

	"flowform/account"
	"flowform/authority"
	"flowform/bizerror"
	"flowform/persistence"
	"flowform/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func setup(t *testing.T, testDatabase **testinfra.TestDatabase) {
	db := testinfra.StartMysqlTestDatabase("flowform")
	*testDatabase = db
	Expect(db.DS.GormDB().AutoMigrate(&account.User{}).Error).To(BeNil())

	persistence.ActiveDataSourceManager = db.DS
}

func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func TestCreateUser(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("only administrators can create users, and the role must be known", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		c := account.UserCreation{Name: "ann", Secret: "abc123", Role: "TaskExecutor"}
		_, err := account.CreateUser(&c, testinfra.BuildSession(10, authority.RoleStandardUser))
		Expect(err).To(Equal(bizerror.ErrForbidden))

		admin := testinfra.BuildAdminSession(1)
		bad := account.UserCreation{Name: "ann", Secret: "abc123", Role: "Emperor"}
		_, err = account.CreateUser(&bad, admin)
		_, isBadParam := err.(*bizerror.ErrBadParam)
		Expect(isBadParam).To(BeTrue())

		info, err := account.CreateUser(&c, admin)
		Expect(err).To(BeNil())
		Expect(info.Name).To(Equal("ann"))
		Expect(info.Role).To(Equal(authority.RoleTaskExecutor))

		stored := account.User{}
		Expect(testDatabase.DS.GormDB().Where("id = ?", info.ID).First(&stored).Error).To(BeNil())
		Expect(stored.Secret).To(Equal(account.HashSha256("abc123")))
	})
}

func TestUpdateUser(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("a user may update itself but only an administrator may change a role", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		admin := testinfra.BuildAdminSession(1)
		info, err := account.CreateUser(&account.UserCreation{Name: "ann", Secret: "abc123",
			Role: "StandardUser"}, admin)
		Expect(err).To(BeNil())

		self := testinfra.BuildSession(info.ID, authority.RoleStandardUser)
		Expect(account.UpdateUser(info.ID, &account.UserUpdation{Nickname: "Ann"}, self)).To(BeNil())
		Expect(account.UpdateUser(info.ID, &account.UserUpdation{Nickname: "Ann", Role: "Administrator"}, self)).
			To(Equal(bizerror.ErrForbidden))
		Expect(account.UpdateUser(info.ID, &account.UserUpdation{Nickname: "Ann", Role: "TaskExecutor"}, admin)).
			To(BeNil())

		stored := account.User{}
		Expect(testDatabase.DS.GormDB().Where("id = ?", info.ID).First(&stored).Error).To(BeNil())
		Expect(stored.Nickname).To(Equal("Ann"))
		Expect(stored.Role).To(Equal(authority.RoleTaskExecutor))

		other := testinfra.BuildSession(999, authority.RoleStandardUser)
		Expect(account.UpdateUser(info.ID, &account.UserUpdation{Nickname: "Bob"}, other)).
			To(Equal(bizerror.ErrForbidden))
	})
}

func TestUpdateBasicAuthSecret(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("the original secret must match", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		admin := testinfra.BuildAdminSession(1)
		info, err := account.CreateUser(&account.UserCreation{Name: "ann", Secret: "abc123",
			Role: "StandardUser"}, admin)
		Expect(err).To(BeNil())

		self := testinfra.BuildSession(info.ID, authority.RoleStandardUser)
		Expect(account.UpdateBasicAuthSecret(&account.BasicAuthUpdating{
			OriginalSecret: "abc123", NewSecret: "def456"}, self)).To(BeNil())

		stored := account.User{}
		Expect(testDatabase.DS.GormDB().Where("id = ?", info.ID).First(&stored).Error).To(BeNil())
		Expect(stored.Secret).To(Equal(account.HashSha256("def456")))
	})
}

func TestQueryAccountNames(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("nicknames win over names and unknown ids are simply absent", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		admin := testinfra.BuildAdminSession(1)
		ann, err := account.CreateUser(&account.UserCreation{Name: "ann", Nickname: "Ann",
			Secret: "abc123", Role: "StandardUser"}, admin)
		Expect(err).To(BeNil())
		bob, err := account.CreateUser(&account.UserCreation{Name: "bob", Secret: "abc123",
			Role: "StandardUser"}, admin)
		Expect(err).To(BeNil())

		names, err := account.QueryAccountNames([]types.ID{ann.ID, bob.ID, 404}, admin)
		Expect(err).To(BeNil())
		Expect(names).To(Equal(map[types.ID]string{ann.ID: "Ann", bob.ID: "bob"}))
	})
}

func TestDefaultSecurityConfiguration(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should seed the initial administrator exactly once", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		os.Setenv("INITIAL_ADMIN_PASSWORD", "first-secret")
		defer os.Unsetenv("INITIAL_ADMIN_PASSWORD")

		Expect(account.DefaultSecurityConfiguration()).To(BeNil())
		admin := account.User{}
		Expect(testDatabase.DS.GormDB().Where("id = ?", 1).First(&admin).Error).To(BeNil())
		Expect(admin.Name).To(Equal("admin"))
		Expect(admin.Role).To(Equal(authority.RoleAdministrator))
		Expect(admin.Secret).To(Equal(account.HashSha256("first-secret")))

		os.Setenv("INITIAL_ADMIN_PASSWORD", "second-secret")
		Expect(account.DefaultSecurityConfiguration()).To(BeNil())
		Expect(testDatabase.DS.GormDB().Where("id = ?", 1).First(&admin).Error).To(BeNil())
		Expect(admin.Secret).To(Equal(account.HashSha256("first-secret")))

		var count int
		Expect(testDatabase.DS.GormDB().Model(&account.User{}).Count(&count).Error).To(BeNil())
		Expect(count).To(Equal(1))
	})
}
