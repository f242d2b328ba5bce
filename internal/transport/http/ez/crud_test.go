package ez

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go-gin-microblog/internal/domain"
	resp "go-gin-microblog/internal/transport/http/response"
)

// 测试引擎：身份从 X-Test-User 头注入，绕开 JWT
func newCrudRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Micropost{}))

	r := gin.New()
	g := r.Group("", func(c *gin.Context) {
		if u := c.GetHeader("X-Test-User"); u != "" {
			c.Set("userId", u)
		}
	})
	Crud(CrudConfig[domain.Micropost]{
		DB:    db,
		Group: g,
		Path:  "/microposts",
		New:   func() *domain.Micropost { return &domain.Micropost{} },
		Hooks: CrudHooks[domain.Micropost]{
			BeforeCreate: func(c *gin.Context, m *domain.Micropost) error {
				if errs := m.Validate(); len(errs) > 0 {
					return errs
				}
				return nil
			},
		},
		OrderBy: "created_at DESC, id DESC",
	})
	return r
}

type crudEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func crudDo(t *testing.T, r *gin.Engine, user, method, path, body string) crudEnvelope {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var e crudEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func createPost(t *testing.T, r *gin.Engine, user, content string) domain.Micropost {
	t.Helper()
	e := crudDo(t, r, user, http.MethodPost, "/microposts", fmt.Sprintf(`{"content":%q}`, content))
	require.Equal(t, resp.CodeOK, e.Code, "create failed: %s", e.Msg)
	var m domain.Micropost
	require.NoError(t, json.Unmarshal(e.Data, &m))
	return m
}

func TestCrudOwnerScoping(t *testing.T) {
	r := newCrudRouter(t)
	post := createPost(t, r, "alice", "hello from alice")

	// 属主能读
	e := crudDo(t, r, "alice", http.MethodGet, "/microposts/"+post.ID, "")
	assert.Equal(t, resp.CodeOK, e.Code)

	// 别人读写都当不存在
	e = crudDo(t, r, "bob", http.MethodGet, "/microposts/"+post.ID, "")
	assert.Equal(t, resp.CodeNotFound, e.Code)
	e = crudDo(t, r, "bob", http.MethodDelete, "/microposts/"+post.ID, "")
	assert.Equal(t, resp.CodeNotFound, e.Code)

	// 属主删掉后自己也查不到了
	e = crudDo(t, r, "alice", http.MethodDelete, "/microposts/"+post.ID, "")
	assert.Equal(t, resp.CodeOK, e.Code)
	e = crudDo(t, r, "alice", http.MethodGet, "/microposts/"+post.ID, "")
	assert.Equal(t, resp.CodeNotFound, e.Code)
}

func TestCrudListScopedAndPaged(t *testing.T) {
	r := newCrudRouter(t)
	for i := 0; i < 3; i++ {
		createPost(t, r, "alice", fmt.Sprintf("alice %d", i))
	}
	createPost(t, r, "bob", "bob only")

	e := crudDo(t, r, "alice", http.MethodGet, "/microposts?page=1&size=2", "")
	require.Equal(t, resp.CodeOK, e.Code)

	var page resp.Paged
	require.NoError(t, json.Unmarshal(e.Data, &page))
	assert.EqualValues(t, 3, page.Total, "only own rows are counted")

	items, ok := page.List.([]any)
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestCrudCreateValidatesAndGeneratesID(t *testing.T) {
	r := newCrudRouter(t)

	// BeforeCreate 钩子拦空内容
	e := crudDo(t, r, "alice", http.MethodPost, "/microposts", `{"content":"   "}`)
	assert.Equal(t, resp.CodeBadRequest, e.Code)

	// 客户端给的 id 不认：两次同 id 都成功，主键各自新生成
	m1 := crudDo(t, r, "alice", http.MethodPost, "/microposts", `{"id":"forged","content":"one"}`)
	m2 := crudDo(t, r, "alice", http.MethodPost, "/microposts", `{"id":"forged","content":"two"}`)
	require.Equal(t, resp.CodeOK, m1.Code)
	require.Equal(t, resp.CodeOK, m2.Code)

	var p1, p2 domain.Micropost
	require.NoError(t, json.Unmarshal(m1.Data, &p1))
	require.NoError(t, json.Unmarshal(m2.Data, &p2))
	assert.NotEqual(t, "forged", p1.ID)
	assert.NotEqual(t, p1.ID, p2.ID)
	assert.Equal(t, "alice", p1.UserID, "owner comes from the session, not the payload")
}

func TestCrudRequiresIdentity(t *testing.T) {
	r := newCrudRouter(t)

	e := crudDo(t, r, "", http.MethodPost, "/microposts", `{"content":"anonymous"}`)
	assert.Equal(t, resp.CodeUnauthorized, e.Code)
	e = crudDo(t, r, "", http.MethodGet, "/microposts", "")
	assert.Equal(t, resp.CodeUnauthorized, e.Code)
}
