package scsynth

// Server command addresses used by this package. The full command reference
// lives in the SuperCollider Server Command Reference.
const (
	cmdQuit       = "/quit"
	cmdNotify     = "/notify"
	cmdStatus     = "/status"
	cmdDumpOSC    = "/dumpOSC"
	cmdSync       = "/sync"
	cmdVersion    = "/version"
	cmdDefRecv    = "/d_recv"
	cmdDefLoad    = "/d_load"
	cmdDefLoadDir = "/d_loadDir"
	cmdDefFree    = "/d_free"

	cmdNodeFree  = "/n_free"
	cmdNodeRun   = "/n_run"
	cmdNodeSet   = "/n_set"
	cmdNodeOrder = "/n_order"
	cmdNodeQuery = "/n_query"

	cmdSynthNew  = "/s_new"
	cmdSynthGet  = "/s_get"
	cmdSynthGetn = "/s_getn"

	cmdGroupNew       = "/g_new"
	cmdGroupFreeAll   = "/g_freeAll"
	cmdGroupDeepFree  = "/g_deepFree"
	cmdGroupQueryTree = "/g_queryTree"

	cmdBufAlloc     = "/b_alloc"
	cmdBufAllocRead = "/b_allocRead"
	cmdBufRead      = "/b_read"
	cmdBufWrite     = "/b_write"
	cmdBufFree      = "/b_free"
	cmdBufZero      = "/b_zero"
	cmdBufClose     = "/b_close"
	cmdBufQuery     = "/b_query"
	cmdBufGet       = "/b_get"
	cmdBufGetn      = "/b_getn"

	cmdControlGet  = "/c_get"
	cmdControlGetn = "/c_getn"
	cmdControlSet  = "/c_set"
	cmdControlSetn = "/c_setn"
)

// Reply and notification addresses.
const (
	replyDone      = "/done"
	replyFail      = "/fail"
	replyLate      = "/late"
	replyStatus    = "/status.reply"
	replySynced    = "/synced"
	replyVersion   = "/version.reply"
	replyNodeSet   = "/n_set"
	replyNodeSetn  = "/n_setn"
	replyNodeInfo  = "/n_info"
	replyBufSet    = "/b_set"
	replyBufSetn   = "/b_setn"
	replyBufInfo   = "/b_info"
	replyCtlSet    = "/c_set"
	replyCtlSetn   = "/c_setn"
	replyQueryTree = "/g_queryTree.reply"

	notifyNodeGo   = "/n_go"
	notifyNodeEnd  = "/n_end"
	notifyNodeOn   = "/n_on"
	notifyNodeOff  = "/n_off"
	notifyNodeMove = "/n_move"
)

// replySpec names the address at which a command's reply arrives. Keyed
// replies arrive on a shared first-level address (/done, /fail) and are fanned
// out into per-command sub-queues by their first argument.
type replySpec struct {
	addr  string
	keyed bool
}

// replyAddresses is the fixed outgoing-command to reply-address pairing table.
// The reply router is keyed by it, so it must be exact: a "get" command's
// reply arrives tagged with the corresponding "set" address.
var replyAddresses = map[string]replySpec{
	cmdStatus:         {replyStatus, false},
	cmdSync:           {replySynced, false},
	cmdVersion:        {replyVersion, false},
	cmdSynthGet:       {replyNodeSet, false},
	cmdSynthGetn:      {replyNodeSetn, false},
	cmdBufGet:         {replyBufSet, false},
	cmdBufGetn:        {replyBufSetn, false},
	cmdControlGet:     {replyCtlSet, false},
	cmdControlGetn:    {replyCtlSetn, false},
	cmdBufQuery:       {replyBufInfo, false},
	cmdNodeQuery:      {replyNodeInfo, false},
	cmdGroupQueryTree: {replyQueryTree, false},

	cmdQuit:         {replyDone, true},
	cmdNotify:       {replyDone, true},
	cmdDefRecv:      {replyDone, true},
	cmdDefLoad:      {replyDone, true},
	cmdDefLoadDir:   {replyDone, true},
	cmdBufAlloc:     {replyDone, true},
	cmdBufAllocRead: {replyDone, true},
	cmdBufRead:      {replyDone, true},
	cmdBufWrite:     {replyDone, true},
	cmdBufFree:      {replyDone, true},
	cmdBufZero:      {replyDone, true},
	cmdBufClose:     {replyDone, true},
}

// ReplyAddress returns the address a reply to the given command arrives at,
// if the command has one.
func ReplyAddress(cmd string) (string, bool) {
	spec, ok := replyAddresses[cmd]
	return spec.addr, ok
}

// AddAction describes where a new or moved node is placed relative to its
// target, per the server command reference.
type AddAction int32

const (
	// AddToHead places the node at the head of the target group.
	AddToHead AddAction = 0
	// AddToTail places the node at the tail of the target group.
	AddToTail AddAction = 1
	// AddBefore places the node immediately before the target node.
	AddBefore AddAction = 2
	// AddAfter places the node immediately after the target node.
	AddAfter AddAction = 3
	// AddReplace replaces the target node. Invalid for move operations.
	AddReplace AddAction = 4
)

func (a AddAction) String() string {
	switch a {
	case AddToHead:
		return "addToHead"
	case AddToTail:
		return "addToTail"
	case AddBefore:
		return "addBefore"
	case AddAfter:
		return "addAfter"
	case AddReplace:
		return "addReplace"
	default:
		return "addAction(invalid)"
	}
}
