package ez

import (
	"net/http"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	resp "go-gin-microblog/internal/transport/http/response"
	"go-gin-microblog/pkg/utils"
)

// Hook
type CrudHooks[T any] struct {
	BeforeCreate func(c *gin.Context, m *T) error
	ScopeList    func(c *gin.Context, q *gorm.DB) *gorm.DB // 自定义筛选/排序
}

// CrudConfig 归属用户的资源（微博等）：Create/List/Get/Delete，
// 一律按 userId 圈定归属，不能读写别人的行
type CrudConfig[T any] struct {
	DB    *gorm.DB
	Group *gin.RouterGroup // 已鉴权分组（能拿 userId）
	Path  string
	New   func() *T

	Hooks CrudHooks[T]

	IDField    string // 默认 "ID"
	OwnerField string // 默认 "UserID"

	IDGen func() string // 默认 utils.NewID

	// 列表排序，为空则按创建时间倒序
	OrderBy string
}

func (c *CrudConfig[T]) idFieldCandidates() []string {
	if c.IDField != "" {
		return []string{c.IDField, "ID"}
	}
	return []string{"ID"}
}

func (c *CrudConfig[T]) ownerFieldCandidates() []string {
	if c.OwnerField != "" {
		return []string{c.OwnerField, "UserID"}
	}
	return []string{"UserID"}
}

func getStringFieldPtr(obj any, candidates []string) (*string, bool) {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr {
		return nil, false
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return nil, false
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		for _, cand := range candidates {
			if f.Name == cand {
				fv := v.Field(i)
				if fv.Kind() == reflect.String && fv.CanSet() {
					return fv.Addr().Interface().(*string), true
				}
			}
		}
	}
	return nil, false
}

func writeStringField(obj any, candidates []string, val string) bool {
	p, ok := getStringFieldPtr(obj, candidates)
	if !ok {
		return false
	}
	*p = val
	return true
}

func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// Crud 注册归属型资源的四个接口（模型无需实现任何接口）
func Crud[T any](cfg CrudConfig[T]) {
	if cfg.IDGen == nil {
		cfg.IDGen = utils.NewID
	}

	idFieldNames := cfg.idFieldCandidates()
	ownerFieldNames := cfg.ownerFieldCandidates()

	// Create
	cfg.Group.POST(cfg.Path, func(c *gin.Context) {
		m := cfg.New()
		if err := c.ShouldBindJSON(m); err != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
			return
		}
		uid := c.GetString("userId")
		if uid == "" {
			c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
			return
		}
		// 主键一律服务端生成，客户端带上来的不认
		if !writeStringField(m, idFieldNames, cfg.IDGen()) {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, "id field not found"))
			return
		}
		if !writeStringField(m, ownerFieldNames, uid) {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, "owner field not found"))
			return
		}

		if cfg.Hooks.BeforeCreate != nil {
			if err := cfg.Hooks.BeforeCreate(c, m); err != nil {
				c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
				return
			}
		}
		if err := cfg.DB.WithContext(c).Create(m).Error; err != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusOK, resp.OK(m))
	})

	// List（我的）
	cfg.Group.GET(cfg.Path, func(c *gin.Context) {
		uid := c.GetString("userId")
		if uid == "" {
			c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
			return
		}
		page := atoiDefault(c.Query("page"), 1)
		size := atoiDefault(c.Query("size"), 20)
		if size <= 0 || size > 100 {
			size = 20
		}
		offset := (page - 1) * size

		// 用结构体 Where 自动映射列名，避免手写 user_id
		ownerFilter := cfg.New()
		if !writeStringField(ownerFilter, ownerFieldNames, uid) {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, "owner field not found"))
			return
		}

		q := cfg.DB.WithContext(c).Model(cfg.New()).Where(ownerFilter)
		if cfg.Hooks.ScopeList != nil {
			q = cfg.Hooks.ScopeList(c, q)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeServerError, err.Error()))
			return
		}

		order := cfg.OrderBy
		if order == "" {
			order = "created_at DESC"
		}
		var items []T
		if err := q.Order(order).Limit(size).Offset(offset).Find(&items).Error; err != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeServerError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, resp.OKPaged(items, total, page, size))
	})

	// Get
	cfg.Group.GET(cfg.Path+"/:id", func(c *gin.Context) {
		uid := c.GetString("userId")
		if uid == "" {
			c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
			return
		}
		filter := cfg.New()
		_ = writeStringField(filter, idFieldNames, c.Param("id"))
		_ = writeStringField(filter, ownerFieldNames, uid)

		m := cfg.New()
		if err := cfg.DB.WithContext(c).Where(filter).First(m).Error; err != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeNotFound, "not found"))
			return
		}
		c.JSON(http.StatusOK, resp.OK(m))
	})

	// Delete
	cfg.Group.DELETE(cfg.Path+"/:id", func(c *gin.Context) {
		uid := c.GetString("userId")
		if uid == "" {
			c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
			return
		}
		filter := cfg.New()
		_ = writeStringField(filter, idFieldNames, c.Param("id"))
		_ = writeStringField(filter, ownerFieldNames, uid)

		res := cfg.DB.WithContext(c).Where(filter).Delete(cfg.New())
		if res.Error != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeServerError, res.Error.Error()))
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusOK, resp.Error(resp.CodeNotFound, "not found"))
			return
		}
		c.JSON(http.StatusOK, resp.OK(gin.H{"id": c.Param("id")}))
	})
}
