package repository

import (
	"trade-review/internal/models"

	"github.com/jmoiron/sqlx"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	query := "SELECT * FROM users WHERE username = ? LIMIT 1"
	err := r.db.Get(&user, query, username)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	query := "SELECT * FROM users WHERE email = ? LIMIT 1"
	err := r.db.Get(&user, query, email)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(id int) (*models.User, error) {
	var user models.User
	query := "SELECT * FROM users WHERE id = ? LIMIT 1"
	err := r.db.Get(&user, query, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Create(user *models.User) error {
	query := `INSERT INTO users (name, username, email, password_hash, role, is_active)
	          VALUES (:name, :username, :email, :password_hash, :role, :is_active)`
	result, err := r.db.NamedExec(query, user)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	user.ID = int(id)
	return nil
}

// CountNonAdmins returns the number of regular user accounts, for the
// admin dashboard.
func (r *UserRepository) CountNonAdmins() (int, error) {
	var total int
	err := r.db.Get(&total, "SELECT COUNT(*) FROM users WHERE role != 'admin'")
	return total, err
}
