// Package mysqlstore is the database-backed variant of the account.Store
// capability, following the same connection and DSN-building style as
// the original paysys database layer.
package mysqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"loginsrv/internal/account"
)

// Config holds the MySQL connection parameters.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// Store is a MySQL-backed account.Store. Its schema is a single "accounts"
// table; accountReg2 pairs are packed into a single TEXT column
// ("key=value" lines) rather than a child table, since the core treats the
// whole set as one opaque blob per account.
type Store struct {
	db *sql.DB
}

func Open(cfg Config) (*Store, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysqlstore: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("mysqlstore: ping: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const selectCols = `id, userid, password, sex, state, expiration, unban_time,
	email, last_login, last_ip, login_count, level, account_reg2`

func scanAccount(row *sql.Row) (account.Account, bool, error) {
	var a account.Account
	var sex string
	var reg2 string
	err := row.Scan(&a.ID, &a.Userid, &a.Password, &sex, &a.State, &a.Expiration,
		&a.UnbanTime, &a.Email, &a.LastLogin, &a.LastIP, &a.LoginCount, &a.Level, &reg2)
	if err == sql.ErrNoRows {
		return account.Account{}, false, nil
	}
	if err != nil {
		return account.Account{}, false, err
	}
	if len(sex) > 0 {
		a.Sex = sex[0]
	}
	a.AccountReg2 = decodeReg2(reg2)
	return a, true, nil
}

func (s *Store) LoadByID(id int32) (account.Account, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, "SELECT "+selectCols+" FROM accounts WHERE id = ?", id)
	return scanAccount(row)
}

func (s *Store) LoadByName(userid string) (account.Account, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, "SELECT "+selectCols+" FROM accounts WHERE userid = ?", userid)
	return scanAccount(row)
}

func (s *Store) Create(a account.Account) (account.Account, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (userid, password, sex, state, expiration, unban_time, email, last_login, last_ip, login_count, level, account_reg2)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Userid, a.Password, string(a.Sex), a.State, a.Expiration, a.UnbanTime,
		a.Email, a.LastLogin, a.LastIP, a.LoginCount, a.Level, encodeReg2(a.AccountReg2))
	if err != nil {
		return account.Account{}, fmt.Errorf("mysqlstore: create: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return account.Account{}, err
	}
	a.ID = int32(id)
	return a, nil
}

func (s *Store) Save(a account.Account) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET userid=?, password=?, sex=?, state=?, expiration=?, unban_time=?,
		 email=?, last_login=?, last_ip=?, login_count=?, level=?, account_reg2=? WHERE id=?`,
		a.Userid, a.Password, string(a.Sex), a.State, a.Expiration, a.UnbanTime,
		a.Email, a.LastLogin, a.LastIP, a.LoginCount, a.Level, encodeReg2(a.AccountReg2), a.ID)
	return err
}

func (s *Store) Iterate(fn func(account.Account) bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, "SELECT "+selectCols+" FROM accounts")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a account.Account
		var sex, reg2 string
		if err := rows.Scan(&a.ID, &a.Userid, &a.Password, &sex, &a.State, &a.Expiration,
			&a.UnbanTime, &a.Email, &a.LastLogin, &a.LastIP, &a.LoginCount, &a.Level, &reg2); err != nil {
			return err
		}
		if len(sex) > 0 {
			a.Sex = sex[0]
		}
		a.AccountReg2 = decodeReg2(reg2)
		if !fn(a) {
			break
		}
	}
	return rows.Err()
}

func encodeReg2(pairs []account.RegPair) string {
	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		lines = append(lines, p.Key+"="+p.Value)
	}
	return strings.Join(lines, "\n")
}

func decodeReg2(raw string) []account.RegPair {
	if raw == "" {
		return nil
	}
	lines := strings.Split(raw, "\n")
	pairs := make([]account.RegPair, 0, len(lines))
	for _, line := range lines {
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		pairs = append(pairs, account.RegPair{Key: k, Value: v})
	}
	return pairs
}

var _ account.Store = (*Store)(nil)
