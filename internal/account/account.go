// Package account defines the Account record and the pluggable store
// capability the authentication pipeline depends on.
package account

// Sex values, matching the wire protocol's single-byte sex field.
const (
	SexMale   = 'M'
	SexFemale = 'F'
	SexServer = 'S' // a char-server's own service account
)

// START_ACCOUNT_NUM is the lowest account id assigned to real user
// accounts; ids below it are reserved. The authentication pipeline does
// not treat reserved ids specially.
const StartAccountNum = 2000000

// AccountReg2Num bounds the number of key/value pairs an account's
// scoped registry may hold.
const AccountReg2Num = 16

// DefaultEmail is the sentinel value meaning "no email set".
const DefaultEmail = "a@a.com"

// RegPair is one entry of an account's accountReg2 table.
type RegPair struct {
	Key   string
	Value string
}

// Account is the consumed shape of an account record.
type Account struct {
	ID          int32
	Userid      string
	Password    string // plaintext, or hex MD5 digest when UseMD5Passwords is set
	Sex         byte
	State       int32 // 0 = OK; nonzero maps to denial code state-1
	Expiration  int64 // unix seconds; 0 = never
	UnbanTime   int64 // unix seconds; 0 = not banned
	Email       string
	LastLogin   int64
	LastIP      string
	LoginCount  int64
	Level       int
	AccountReg2 []RegPair
}

// HasDefaultEmail reports whether e is unset or still the default sentinel,
// per the 0x2715 "set email only if default" rule.
func HasDefaultEmail(email string) bool {
	return email == "" || email == DefaultEmail
}

// Store is the capability set the core depends on. Two concrete variants
// are provided: a MySQL-backed store (mysqlstore) and an embedded
// KV-backed store (badgerstore). The core treats store errors as
// "record not found" and never retries.
type Store interface {
	LoadByID(id int32) (Account, bool, error)
	LoadByName(userid string) (Account, bool, error)
	Create(a Account) (Account, error) // assigns and returns id >= StartAccountNum
	Save(a Account) error
	Iterate(func(Account) bool) error
}
