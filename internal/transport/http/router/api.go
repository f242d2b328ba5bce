package router

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-gin-microblog/internal/core/auth"
	"go-gin-microblog/internal/domain"
	"go-gin-microblog/internal/service"
	httpez "go-gin-microblog/internal/transport/http/ez"
	mdw "go-gin-microblog/internal/transport/http/middleware"
)

// Deps 用户端路由用到的服务
type Deps struct {
	Users *service.UserService
	Rels  *service.RelationshipService
	Feed  *service.FeedService
}

func NewAPIEngine(l *zap.Logger, db *gorm.DB, jwter *auth.JWTer, d Deps) *gin.Engine {
	r := gin.New()

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		mdw.SimpleRecovery(),
		mdw.Metrics(),
		mdw.AccessLog(l),
		cors.Default(),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	// 公共分组（无需登录）
	mountPublic(api, db, jwter, d)

	// 鉴权分组
	authed := api.Group("")
	authed.Use(mdw.AuthJWT(jwter, ""))
	mountAuthed(authed, db, jwter, d)

	return r
}

// ---------- 公共接口：注册 / 登录 / 确认 / 重置 ----------

func mountPublic(api *gin.RouterGroup, db *gorm.DB, jwter *auth.JWTer, d Deps) {
	ez := httpez.New(api)

	type signupIn struct {
		Name                 string `json:"name" binding:"required"`
		Email                string `json:"email" binding:"required"`
		Password             string `json:"password" binding:"required"`
		PasswordConfirmation string `json:"password_confirmation" binding:"required"`
	}
	type signupOut struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	httpez.RegisterAction[signupIn, signupOut](ez, db, httpez.Action[signupIn, signupOut]{
		Method: http.MethodPost,
		Path:   "/signup",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *signupIn) (signupOut, error) {
			u, err := d.Users.Register(c.Request.Context(), in.Name, in.Email, in.Password, in.PasswordConfirmation)
			if err != nil {
				return signupOut{}, asActionErr(err)
			}
			return signupOut{
				ID:      u.ID,
				Message: "we have sent a confirmation email, please check your mail",
			}, nil
		},
	})

	type loginIn struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	httpez.RegisterAction[loginIn, tokenOut](ez, db, httpez.Action[loginIn, tokenOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *loginIn) (tokenOut, error) {
			u, err := d.Users.Authenticate(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				return tokenOut{}, asActionErr(err)
			}
			return issueToken(jwter, u)
		},
	})

	// 邮件里的确认链接落在这里；成功即视为签入
	type confirmIn struct {
		ID   string `form:"id" binding:"required"`
		Hash string `form:"hash" binding:"required"`
	}
	httpez.RegisterAction[confirmIn, tokenOut](ez, db, httpez.Action[confirmIn, tokenOut]{
		Method: http.MethodGet,
		Path:   "/confirm",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, _ *gorm.DB, in *confirmIn) (tokenOut, error) {
			u, err := d.Users.ConfirmRegistration(c.Request.Context(), in.ID, in.Hash)
			if err != nil {
				return tokenOut{}, asActionErr(err)
			}
			return issueToken(jwter, u)
		},
	})

	type resetReqIn struct {
		Email string `json:"email" binding:"required"`
	}
	httpez.RegisterAction[resetReqIn, gin.H](ez, db, httpez.Action[resetReqIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/password_reset",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *resetReqIn) (gin.H, error) {
			if err := d.Users.RequestPasswordReset(c.Request.Context(), in.Email); err != nil {
				return nil, asActionErr(err)
			}
			return gin.H{"message": "we have sent a reset password email, please check your mail"}, nil
		},
	})

	type resetIn struct {
		ID                   string `json:"id" binding:"required"`
		Hash                 string `json:"hash" binding:"required"`
		Password             string `json:"password" binding:"required"`
		PasswordConfirmation string `json:"password_confirmation" binding:"required"`
	}
	httpez.RegisterAction[resetIn, tokenOut](ez, db, httpez.Action[resetIn, tokenOut]{
		Method: http.MethodPost,
		Path:   "/password_reset/complete",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *resetIn) (tokenOut, error) {
			u, err := d.Users.ResetPassword(c.Request.Context(), in.ID, in.Hash, in.Password, in.PasswordConfirmation)
			if err != nil {
				return tokenOut{}, asActionErr(err)
			}
			return issueToken(jwter, u)
		},
	})
}

// ---------- 鉴权接口：资料 / 关注 / 信息流 / 微博 ----------

type pageQ struct {
	Page int `form:"page,default=1"`
	Size int `form:"size,default=20"`
}

func (q pageQ) offsetLimit() (int, int) {
	page, size := q.Page, q.Size
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return (page - 1) * size, size
}

type userRow struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type pagedUsers struct {
	Total int64     `json:"total"`
	Items []userRow `json:"items"`
}

type postRow struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type pagedPosts struct {
	Total int64     `json:"total"`
	Items []postRow `json:"items"`
}

func mountAuthed(g *gin.RouterGroup, db *gorm.DB, jwter *auth.JWTer, d Deps) {
	ez := httpez.New(g)

	type meOut struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  string `json:"role"`
	}
	httpez.RegisterAction[struct{}, meOut](ez, db, httpez.Action[struct{}, meOut]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (meOut, error) {
			u, err := d.Users.Get(c.Request.Context(), c.GetString("userId"))
			if err != nil {
				return meOut{}, asActionErr(err)
			}
			return meOut{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role()}, nil
		},
	})

	// 资料更新只认 name/email/password，admin 标记结构上就收不进来
	type updateIn struct {
		Name                 string `json:"name"`
		Email                string `json:"email"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation"`
	}
	httpez.RegisterAction[updateIn, meOut](ez, db, httpez.Action[updateIn, meOut]{
		Method: http.MethodPut,
		Path:   "/me",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *updateIn) (meOut, error) {
			u, err := d.Users.Update(c.Request.Context(), c.GetString("userId"), service.UpdateInput{
				Name:                 in.Name,
				Email:                in.Email,
				Password:             in.Password,
				PasswordConfirmation: in.PasswordConfirmation,
			})
			if err != nil {
				return meOut{}, asActionErr(err)
			}
			return meOut{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role()}, nil
		},
	})

	httpez.RegisterAction[pageQ, pagedPosts](ez, db, httpez.Action[pageQ, pagedPosts]{
		Method: http.MethodGet,
		Path:   "/feed",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *pageQ) (pagedPosts, error) {
			offset, limit := in.offsetLimit()
			posts, total, err := d.Feed.Feed(c.Request.Context(), c.GetString("userId"), offset, limit)
			if err != nil {
				return pagedPosts{}, asActionErr(err)
			}
			return toPagedPosts(posts, total), nil
		},
	})

	httpez.RegisterAction[pageQ, pagedUsers](ez, db, httpez.Action[pageQ, pagedUsers]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *pageQ) (pagedUsers, error) {
			offset, limit := in.offsetLimit()
			users, total, err := d.Users.List(c.Request.Context(), "", offset, limit)
			if err != nil {
				return pagedUsers{}, asActionErr(err)
			}
			return toPagedUsers(users, total), nil
		},
	})

	httpez.RegisterAction[struct{}, *service.Profile](ez, db, httpez.Action[struct{}, *service.Profile]{
		Method: http.MethodGet,
		Path:   "/users/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (*service.Profile, error) {
			p, err := d.Users.Profile(c.Request.Context(), c.Param("id"))
			if err != nil {
				return nil, asActionErr(err)
			}
			return p, nil
		},
	})

	httpez.RegisterAction[pageQ, pagedPosts](ez, db, httpez.Action[pageQ, pagedPosts]{
		Method: http.MethodGet,
		Path:   "/users/:id/microposts",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *pageQ) (pagedPosts, error) {
			offset, limit := in.offsetLimit()
			posts, total, err := d.Feed.UserPosts(c.Request.Context(), c.Param("id"), offset, limit)
			if err != nil {
				return pagedPosts{}, asActionErr(err)
			}
			return toPagedPosts(posts, total), nil
		},
	})

	httpez.RegisterAction[pageQ, pagedUsers](ez, db, httpez.Action[pageQ, pagedUsers]{
		Method: http.MethodGet,
		Path:   "/users/:id/following",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *pageQ) (pagedUsers, error) {
			offset, limit := in.offsetLimit()
			users, total, err := d.Rels.FollowedUsers(c.Request.Context(), c.Param("id"), offset, limit)
			if err != nil {
				return pagedUsers{}, asActionErr(err)
			}
			return toPagedUsers(users, total), nil
		},
	})

	httpez.RegisterAction[pageQ, pagedUsers](ez, db, httpez.Action[pageQ, pagedUsers]{
		Method: http.MethodGet,
		Path:   "/users/:id/followers",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *pageQ) (pagedUsers, error) {
			offset, limit := in.offsetLimit()
			users, total, err := d.Rels.Followers(c.Request.Context(), c.Param("id"), offset, limit)
			if err != nil {
				return pagedUsers{}, asActionErr(err)
			}
			return toPagedUsers(users, total), nil
		},
	})

	type followIn struct {
		FollowedID string `json:"followed_id" binding:"required"`
	}
	httpez.RegisterAction[followIn, gin.H](ez, db, httpez.Action[followIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/relationships",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *followIn) (gin.H, error) {
			if err := d.Rels.Follow(c.Request.Context(), c.GetString("userId"), in.FollowedID); err != nil {
				return nil, asActionErr(err)
			}
			return gin.H{"following": true}, nil
		},
	})

	httpez.RegisterAction[struct{}, gin.H](ez, db, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/relationships/:followed_id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (gin.H, error) {
			if err := d.Rels.Unfollow(c.Request.Context(), c.GetString("userId"), c.Param("followed_id")); err != nil {
				return nil, asActionErr(err)
			}
			return gin.H{"following": false}, nil
		},
	})

	// 微博：归属型 CRUD 一行挂载，内容校验放 BeforeCreate
	httpez.Crud(httpez.CrudConfig[domain.Micropost]{
		DB:    db,
		Group: g,
		Path:  "/microposts",
		New:   func() *domain.Micropost { return &domain.Micropost{} },
		Hooks: httpez.CrudHooks[domain.Micropost]{
			BeforeCreate: func(c *gin.Context, m *domain.Micropost) error {
				if errs := m.Validate(); len(errs) > 0 {
					return errs
				}
				return nil
			},
		},
		OrderBy: "created_at DESC, id DESC",
	})
}

// ---------- 小工具 ----------

// tokenOut 登录 / 确认 / 重置完成共用的“签入”响应
type tokenOut struct {
	Token string `json:"token"`
	User  gin.H  `json:"user"`
}

func issueToken(jwter *auth.JWTer, u *domain.User) (tokenOut, error) {
	tok, err := jwter.Issue(u.ID, u.Role())
	if err != nil || tok == "" {
		return tokenOut{}, httpez.Internal("issue token failed", err)
	}
	return tokenOut{
		Token: tok,
		User:  gin.H{"id": u.ID, "email": u.Email, "name": u.Name, "role": u.Role()},
	}, nil
}

func toPagedUsers(users []domain.User, total int64) pagedUsers {
	out := pagedUsers{Total: total, Items: make([]userRow, 0, len(users))}
	for _, u := range users {
		out.Items = append(out.Items, userRow{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	return out
}

func toPagedPosts(posts []domain.Micropost, total int64) pagedPosts {
	out := pagedPosts{Total: total, Items: make([]postRow, 0, len(posts))}
	for _, m := range posts {
		out.Items = append(out.Items, postRow{ID: m.ID, UserID: m.UserID, Content: m.Content, CreatedAt: m.CreatedAt})
	}
	return out
}

// asActionErr 领域错误 → 统一响应码
func asActionErr(err error) error {
	if v, ok := domain.AsValidation(err); ok {
		return httpez.Validation(v)
	}
	switch {
	case errors.Is(err, domain.ErrInvalidEmailOrPassword):
		return httpez.Unauthorized(err.Error())
	case errors.Is(err, domain.ErrWrongHash):
		// id 不存在和 hash 不对给同一个文案
		return httpez.BadRequest("sorry, wrong hash")
	case errors.Is(err, domain.ErrUserNotFound):
		return httpez.NotFound(err.Error())
	case errors.Is(err, domain.ErrSelfFollow):
		return httpez.BadRequest(err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return httpez.Forbidden(err.Error())
	}
	return err
}
