package repository

import "errors"

var ErrNotFound = errors.New("not found")

// unique制約違反。冪等処理の判定に使う。
var ErrDuplicate = errors.New("duplicate")
