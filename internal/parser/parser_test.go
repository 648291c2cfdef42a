package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/coderecall/pkg/types"
)

const userSource = `package users

import (
	"fmt"
	"strings"
)

// User represents a user in the system
type User struct {
	ID   int
	Name string
}

// GetName returns the user's name
func (u *User) GetName() string {
	return u.Name
}

// NewUser creates a new user
func NewUser(id int, name string) *User {
	return &User{ID: id, Name: strings.TrimSpace(name)}
}

const MaxUsers = 100

var (
	a = 1
	b = 2
)

type (
	// ID is a user id
	ID int
	Store interface {
		Get(ID) (*User, error)
	}
)

func helper() { fmt.Println("x") }
`

func TestParse(t *testing.T) {
	res, err := New().Parse("users.go", []byte(userSource))
	require.NoError(t, err)
	assert.Equal(t, "users", res.PackageName)
	assert.NoError(t, res.SyntaxError)

	want := []Decl{
		{Name: "User", Kind: types.KindStruct, StartLine: 8, EndLine: 12},
		{Name: "GetName", Kind: types.KindMethod, Receiver: "User", StartLine: 14, EndLine: 17},
		{Name: "NewUser", Kind: types.KindFunction, StartLine: 19, EndLine: 22},
		{Name: "MaxUsers", Kind: types.KindConst, StartLine: 24, EndLine: 24},
		{Name: "", Kind: types.KindVar, StartLine: 26, EndLine: 29},
		{Name: "ID", Kind: types.KindType, StartLine: 32, EndLine: 33},
		{Name: "Store", Kind: types.KindInterface, StartLine: 34, EndLine: 36},
		{Name: "helper", Kind: types.KindFunction, StartLine: 39, EndLine: 39},
	}
	assert.Equal(t, want, res.Decls)
}

func TestParseGenericReceiver(t *testing.T) {
	src := `package list

type List[T any] struct{ items []T }

func (l *List[T]) Push(v T) { l.items = append(l.items, v) }
`
	res, err := New().Parse("list.go", []byte(src))
	require.NoError(t, err)
	require.Len(t, res.Decls, 2)
	assert.Equal(t, "List", res.Decls[1].Receiver)
	assert.Equal(t, types.KindMethod, res.Decls[1].Kind)
}

func TestParseSyntaxError(t *testing.T) {
	src := `package broken

func Good() int {
	return 1
}

func Bad( {
`
	res, err := New().Parse("broken.go", []byte(src))
	require.NoError(t, err)
	assert.Error(t, res.SyntaxError)
	require.NotEmpty(t, res.Decls)
	assert.Equal(t, "Good", res.Decls[0].Name)
}

func TestParseNoAST(t *testing.T) {
	_, err := New().Parse("garbage.go", []byte("this is not go"))
	assert.Error(t, err)
}
