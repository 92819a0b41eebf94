package service

import "errors"

var (
	ErrDuplicateRequest    = errors.New("a friend request or chat already exists between these users")
	ErrRequestNotFound     = errors.New("friend request not found")
	ErrNotAuthorized       = errors.New("not allowed to perform this action")
	ErrAlreadyConnected    = errors.New("users are already connected")
	ErrNotAGroupChat       = errors.New("this is not a group chat")
	ErrLastMemberViolation = errors.New("cannot remove the last member, delete the chat instead")
	ErrTransactionConflict = errors.New("concurrent update, please try again")

	ErrCannotRequestSelf = errors.New("cannot send a friend request to yourself")
	ErrUserNotFound      = errors.New("user not found")
	ErrNotRequestSender  = errors.New("only the request sender can cancel")
	ErrChatNotFound      = errors.New("chat not found")
	ErrNotAMember        = errors.New("user is not a member of this chat")
	ErrGroupTooSmall     = errors.New("a group chat needs at least 3 members")
	ErrGroupFull         = errors.New("group member limit reached")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrInvalidCreds      = errors.New("invalid username or password")
)
