package apperr

// General
var (
	ErrServer          = New(KindServer, "server_error", "An unexpected error occurred.")
	ErrNotAuthorized   = New(KindNotAuthorized, "not_authorized", "You are not allowed to do that.")
	ErrUnauthenticated = New(KindUnauthenticated, "unauthenticated", "Sign in required.")
	ErrBadID           = New(KindInvalidInput, "bad_id", "Malformed id.")
	ErrTooManyRequests = New(KindRateLimited, "too_many_requests", "Too many attempts, try again later.")
)

// Accounts and friendships
var (
	ErrUserNotFound          = New(KindNotFound, "user_not_found", "User not found.")
	ErrUsernameTaken         = New(KindConflict, "username_taken", "That username is already taken.")
	ErrEmailTaken            = New(KindConflict, "email_taken", "That email is already registered.")
	ErrInvalidCredentials    = New(KindUnauthenticated, "invalid_credentials", "Invalid username or password.")
	ErrCannotFriendSelf      = New(KindInvalidInput, "cannot_friend_self", "You cannot send a friend request to yourself.")
	ErrAlreadyFriends        = New(KindConflict, "already_friends", "You are already friends.")
	ErrFriendRequestPending  = New(KindConflict, "friend_request_pending", "A friend request is already pending.")
	ErrFriendRequestNotFound = New(KindNotFound, "friend_request_not_found", "Friend request not found.")
	ErrNotFriends            = New(KindNotFound, "not_friends", "You are not friends with this user.")
)

// Group lifecycle
var (
	ErrGroupNotFound       = New(KindNotFound, "group_not_found", "Group not found.")
	ErrAlreadyMember       = New(KindConflict, "already_member", "You are already a member of this group.")
	ErrAlreadyPending      = New(KindConflict, "already_pending", "Your join request is already pending.")
	ErrTargetAlreadyMember = New(KindConflict, "target_already_member", "User is already a member of this group.")
	ErrAlreadyInvited      = New(KindConflict, "already_invited", "User has already been invited.")
	ErrInvitationNotFound  = New(KindNotFound, "invitation_not_found", "Invitation not found.")
	ErrRequestNotFound     = New(KindNotFound, "request_not_found", "Join request not found.")
	ErrMemberNotFound      = New(KindNotFound, "member_not_found", "Member not found.")
	ErrCannotRemoveAdmin   = New(KindNotAuthorized, "cannot_remove_admin", "The group admin cannot be removed.")
	ErrNotAMember          = New(KindNotFound, "not_a_member", "You are not a member of this group.")
	ErrAdminCannotLeave    = New(KindNotAuthorized, "admin_cannot_leave", "The group admin cannot leave; delete the group instead.")
)

// Posts, comments, media
var (
	ErrPostNotFound     = New(KindNotFound, "post_not_found", "Post not found.")
	ErrCommentNotFound  = New(KindNotFound, "comment_not_found", "Comment not found.")
	ErrUnsupportedMedia = New(KindInvalidInput, "unsupported_media", "Unsupported media type.")
	ErrMediaTooLarge    = New(KindInvalidInput, "media_too_large", "File is too large.")
)
