package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-gin-microblog/internal/core/auth"
	"go-gin-microblog/internal/core/server"
	"go-gin-microblog/internal/domain"
	"go-gin-microblog/internal/service"
	httpez "go-gin-microblog/internal/transport/http/ez"
	mdw "go-gin-microblog/internal/transport/http/middleware"
)

func NewAdminEngine(l *zap.Logger, db *gorm.DB, jwter *auth.JWTer, users *service.UserService) *gin.Engine {
	r := server.NewRouter(l)

	r.Use(mdw.RequestID(), mdw.Metrics())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 管理端 v1（统一要求 admin 角色）
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(jwter, "admin"))
	mountAdminActions(admin, db, users)

	return r
}

func mountAdminActions(admin *gin.RouterGroup, db *gorm.DB, users *service.UserService) {
	ez := httpez.New(admin)

	// --- GET /admin/v1/users 用户列表 ---
	type listQ struct {
		Offset int    `form:"offset,default=0"`
		Limit  int    `form:"limit,default=20"`
		Q      string `form:"q"` // 按 email/name 模糊搜
	}
	type row struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		Name      string `json:"name"`
		Admin     bool   `json:"admin"`
		Confirmed bool   `json:"confirmed"`
	}
	type listOut struct {
		Total int64 `json:"total"`
		Items []row `json:"items"`
	}

	httpez.RegisterAction[listQ, listOut](ez, db, httpez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, _ *gorm.DB, in *listQ) (listOut, error) {
			if in.Limit <= 0 || in.Limit > 100 {
				in.Limit = 20
			}
			us, total, err := users.List(c.Request.Context(), in.Q, in.Offset, in.Limit)
			if err != nil {
				return listOut{}, httpez.Internal("list users failed", err)
			}
			out := listOut{Total: total, Items: make([]row, 0, len(us))}
			for _, u := range us {
				out.Items = append(out.Items, row{
					ID: u.ID, Email: u.Email, Name: u.Name, Admin: u.Admin, Confirmed: u.Confirmed(),
				})
			}
			return out, nil
		},
	})

	// --- DELETE /admin/v1/users/:id 删除用户（级联微博 + 关注边） ---
	httpez.RegisterAction[struct{}, gin.H](ez, db, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/users/:id",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if id == "" {
				return nil, httpez.BadRequest("missing id")
			}
			err := users.Delete(c.Request.Context(), c.GetString("userId"), id)
			switch {
			case errors.Is(err, domain.ErrForbidden):
				// 删自己：静默拒绝，不报错也不执行
				return gin.H{"id": id, "deleted": false}, nil
			case errors.Is(err, domain.ErrUserNotFound):
				return nil, httpez.NotFound("user not found")
			case err != nil:
				return nil, httpez.Internal("delete user failed", err)
			}
			return gin.H{"id": id, "deleted": true}, nil
		},
	})
}
