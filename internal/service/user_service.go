package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"go-gin-microblog/internal/core/cache"
	"go-gin-microblog/internal/core/database"
	"go-gin-microblog/internal/domain"
	"go-gin-microblog/internal/mailer"
	"go-gin-microblog/pkg/utils"
)

const profileCacheTTL = 5 * time.Minute

type UserService struct {
	users domain.UserRepository
	queue mailer.Queue
	cache *cache.Cache // 可为 nil（测试 / 无 redis 部署）
	log   *zap.Logger
}

func NewUserService(users domain.UserRepository, queue mailer.Queue, c *cache.Cache, log *zap.Logger) *UserService {
	return &UserService{users: users, queue: queue, cache: c, log: log}
}

// Register 注册：校验 → 归一化 → 生成记住我摘要和确认哈希 → 入库 → 异步发确认邮件。
// 确认邮件入队失败不影响注册结果
func (s *UserService) Register(ctx context.Context, name, email, password, confirmation string) (*domain.User, error) {
	u := &domain.User{
		ID:    utils.NewID(),
		Name:  name,
		Email: domain.NormalizeEmail(email),
	}

	errs := u.Validate()
	errs = append(errs, domain.ValidatePassword(password, confirmation)...)
	if len(errs) == 0 {
		taken, err := s.users.EmailTaken(ctx, u.Email)
		if err != nil {
			return nil, err
		}
		if taken {
			errs = errs.Add("email", "has already been taken")
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	u.PasswordHash = utils.HashPassword(password)
	u.RememberDigest = utils.Digest(utils.NewToken())
	hash := utils.NewToken()
	u.ConfirmationHash = &hash

	if err := s.users.Create(ctx, u); err != nil {
		// 并发注册同一邮箱：预检通过但唯一索引拦下，按校验错误返回
		if database.IsDupKey(err) {
			return nil, domain.ValidationErrors{}.Add("email", "has already been taken")
		}
		return nil, err
	}

	s.enqueue(ctx, mailer.KindRegistrationConfirmation, u.ID)
	return u, nil
}

// Authenticate 邮箱大小写不敏感；未确认的账号即使密码正确也拒绝。
// 所有失败都是同一个错误，不区分“无此邮箱”和“密码错误”
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.Confirmed() || !utils.CheckPassword(password, u.PasswordHash) {
		return nil, domain.ErrInvalidEmailOrPassword
	}
	return u, nil
}

// ConfirmRegistration 按 (id, hash) 精确匹配；id 不存在和 hash 不对返回同一个错误
func (s *UserService) ConfirmRegistration(ctx context.Context, id, hash string) (*domain.User, error) {
	u, err := s.users.FindByConfirmation(ctx, id, hash)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrWrongHash
	}
	u.ConfirmationHash = nil
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// RequestPasswordReset 给用户挂一个新的重置哈希并异步发信。
// 每次请求都刷新哈希，旧链接随之失效
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u == nil {
		return domain.ErrUserNotFound
	}
	hash := utils.NewToken()
	u.PasswordResetHash = &hash
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}
	s.enqueue(ctx, mailer.KindPasswordResetConfirmation, u.ID)
	return nil
}

// ResetPassword 重置完成即清掉哈希（一次性），返回的用户视为已签入
func (s *UserService) ResetPassword(ctx context.Context, id, hash, password, confirmation string) (*domain.User, error) {
	u, err := s.users.FindByResetHash(ctx, id, hash)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrWrongHash
	}
	if errs := domain.ValidatePassword(password, confirmation); len(errs) > 0 {
		return nil, errs
	}
	u.PasswordHash = utils.HashPassword(password)
	u.PasswordResetHash = nil
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateInput 资料更新入参。admin 标记不在这里：边界上就不收，而不是收了再过滤
type UpdateInput struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

func (s *UserService) Update(ctx context.Context, id string, in UpdateInput) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}

	var errs domain.ValidationErrors
	if in.Name != "" {
		u.Name = in.Name
	}
	if in.Email != "" {
		newEmail := domain.NormalizeEmail(in.Email)
		if newEmail != u.Email {
			taken, err := s.users.EmailTaken(ctx, newEmail)
			if err != nil {
				return nil, err
			}
			if taken {
				errs = errs.Add("email", "has already been taken")
			}
			u.Email = newEmail
		}
	}
	errs = append(errs, u.Validate()...)
	if in.Password != "" {
		if pErrs := domain.ValidatePassword(in.Password, in.PasswordConfirmation); len(pErrs) > 0 {
			errs = append(errs, pErrs...)
		} else {
			u.PasswordHash = utils.HashPassword(in.Password)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	if err := s.users.Update(ctx, u); err != nil {
		if database.IsDupKey(err) {
			return nil, domain.ValidationErrors{}.Add("email", "has already been taken")
		}
		return nil, err
	}
	s.invalidateProfile(ctx, id)
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, q string, offset, limit int) ([]domain.User, int64, error) {
	return s.users.List(ctx, q, offset, limit)
}

// Delete 管理员删除用户，级联删微博和关注边。
// 删自己一律拒绝（管理员也不行），交给 transport 做静默跳转
func (s *UserService) Delete(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return domain.ErrForbidden
	}
	u, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return err
	}
	if u == nil {
		return domain.ErrUserNotFound
	}
	if err := s.users.DeleteCascade(ctx, targetID); err != nil {
		return err
	}
	s.invalidateProfile(ctx, targetID)
	return nil
}

// Profile 公开资料视图，读多写少，放 redis 缓外层
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *UserService) Profile(ctx context.Context, id string) (*Profile, error) {
	load := func(ctx context.Context) (*Profile, error) {
		u, err := s.users.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, nil
		}
		return &Profile{ID: u.ID, Name: u.Name, CreatedAt: u.CreatedAt}, nil
	}

	var (
		p   *Profile
		err error
	)
	if s.cache != nil {
		p, err = cache.GetOrLoadJSON(s.cache, ctx, profileKey(id), profileCacheTTL, load)
	} else {
		p, err = load(ctx)
	}
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrUserNotFound
	}
	return p, nil
}

func profileKey(id string) string { return fmt.Sprintf("user:profile:%s", id) }

func (s *UserService) invalidateProfile(ctx context.Context, id string) {
	if s.cache != nil {
		s.cache.Del(ctx, profileKey(id))
	}
}

func (s *UserService) enqueue(ctx context.Context, kind, userID string) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(ctx, mailer.Job{Kind: kind, UserID: userID}); err != nil {
		// 通知传输不可用不阻塞也不失败当前请求
		s.log.Error("mail enqueue failed", zap.String("kind", kind), zap.Error(err))
	}
}
