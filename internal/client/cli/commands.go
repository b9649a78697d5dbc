package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/voternet/internal/rpc"
)

type flagKind int

const (
	textFlag flagKind = iota
	boolFlag
)

// field maps a command-line flag onto a request key. Only flags the user
// actually set are sent, so partial updates leave other fields alone.
type field struct {
	flag     string
	key      string
	kind     flagKind
	usage    string
	required bool
}

// call describes a subcommand that forwards to one RPC method. args name
// the request keys filled from positional arguments, in order.
type call struct {
	use          string
	short        string
	method       string
	args         []string
	optionalArgs bool
	fields       []field
}

type group struct {
	use   string
	short string
	calls []call
}

func text(flag, key, usage string) field { return field{flag: flag, key: key, usage: usage} }

func required(flag, key, usage string) field {
	return field{flag: flag, key: key, usage: usage, required: true}
}

func boolean(flag, key, usage string) field {
	return field{flag: flag, key: key, kind: boolFlag, usage: usage}
}

var electionFields = []field{
	text("title", "title", "election title"),
	text("description", "description", "election description"),
	text("type", "type", "national, state, local, referendum or primary"),
	text("start", "startDate", "voting opens at (RFC 3339)"),
	text("end", "endDate", "voting closes at (RFC 3339)"),
	text("jurisdiction", "jurisdiction", "jurisdiction name"),
	boolean("requires-verification", "requiresVerification", "only verified voters may vote"),
	boolean("absentee", "allowsAbsenteeVoting", "allow absentee voting"),
}

var candidateFields = []field{
	text("name", "candidateName", "name on the ballot"),
	text("party", "partyAffiliation", "democratic, republican, independent, green, libertarian or other"),
	text("bio", "bio", "short biography"),
	text("platform", "platform", "campaign platform"),
	text("website", "website", "campaign website"),
}

var commandGroups = []group{
	{use: "profile", short: "Your account profile", calls: []call{
		{use: "get", short: "Show your profile", method: rpc.GetProfile},
		{use: "update", short: "Change your name", method: rpc.UpdateProfile, fields: []field{
			text("first-name", "firstName", "first name"),
			text("last-name", "lastName", "last name"),
		}},
	}},
	{use: "user", short: "Account administration", calls: []call{
		{use: "role <user-id> <role>", short: "Assign a role (voter, volunteer, campaign_staff, election_official or admin)",
			method: rpc.AssignRole, args: []string{"userId", "role"}},
	}},
	{use: "election", short: "Manage and browse elections", calls: []call{
		{use: "create", short: "Create a draft election", method: rpc.CreateElection, fields: electionFields},
		{use: "update <id>", short: "Change a draft election", method: rpc.UpdateElection, args: []string{"id"}, fields: electionFields},
		{use: "publish <id>", short: "Publish a draft election", method: rpc.PublishElection, args: []string{"id"}},
		{use: "activate <id>", short: "Open voting", method: rpc.ActivateElection, args: []string{"id"}},
		{use: "complete <id>", short: "Close voting and finalize results", method: rpc.CompleteElection, args: []string{"id"}},
		{use: "cancel <id>", short: "Cancel an election", method: rpc.CancelElection, args: []string{"id"}},
		{use: "get <id>", short: "Show an election", method: rpc.GetElection, args: []string{"id"}},
		{use: "list", short: "List elections", method: rpc.ListElections, fields: []field{
			text("status", "status", "filter by status"),
			text("type", "type", "filter by type"),
			text("jurisdiction", "jurisdiction", "filter by jurisdiction"),
			text("from", "startFrom", "starting at or after (RFC 3339)"),
			text("to", "startTo", "starting at or before (RFC 3339)"),
		}},
		{use: "active", short: "List elections open for voting now", method: rpc.ActiveElections},
		{use: "upcoming", short: "List published elections that have not started", method: rpc.UpcomingElections},
	}},
	{use: "candidate", short: "Manage and browse candidates", calls: []call{
		{use: "register", short: "Declare candidacy in an election", method: rpc.RegisterCandidate,
			fields: append([]field{required("election", "electionId", "election id")}, candidateFields...)},
		{use: "update <id>", short: "Change a candidacy", method: rpc.UpdateCandidate, args: []string{"id"}, fields: candidateFields},
		{use: "verify <id>", short: "Mark a candidate verified", method: rpc.VerifyCandidate, args: []string{"id"}},
		{use: "deactivate <id>", short: "Withdraw a candidate", method: rpc.DeactivateCandidate, args: []string{"id"}},
		{use: "reactivate <id>", short: "Restore a withdrawn candidate", method: rpc.ReactivateCandidate, args: []string{"id"}},
		{use: "get <id>", short: "Show a candidate", method: rpc.GetCandidate, args: []string{"id"}},
		{use: "list <election-id>", short: "List candidates of an election", method: rpc.ListCandidates, args: []string{"electionId"},
			fields: []field{boolean("all", "includeInactive", "include withdrawn candidates")}},
		{use: "mine", short: "List your candidacies", method: rpc.MyCandidacies},
		{use: "check <election-id>", short: "Report whether you are a candidate", method: rpc.IsCandidate, args: []string{"electionId"}},
	}},
	{use: "voter", short: "Voter registration", calls: []call{
		{use: "register", short: "Register yourself as a voter", method: rpc.RegisterVoter,
			fields: []field{text("id-number", "voterIdNumber", "government voter id number")}},
		{use: "verify <user-id>", short: "Verify a voter", method: rpc.VerifyVoter, args: []string{"userId"}},
		{use: "eligibility <user-id>", short: "Set a voter's eligibility", method: rpc.SetVoterEligibility, args: []string{"userId"},
			fields: []field{boolean("eligible", "eligible", "eligible to vote")}},
		{use: "get [user-id]", short: "Show a voter registration (yours by default)", method: rpc.GetVoterRegistration,
			args: []string{"userId"}, optionalArgs: true},
	}},
	{use: "vote", short: "Cast and inspect votes", calls: []call{
		{use: "cast <election-id> <candidate-id>", short: "Cast your vote", method: rpc.CastVote, args: []string{"electionId", "candidateId"}},
		{use: "eligibility <election-id>", short: "Check whether you may vote", method: rpc.CheckEligibility, args: []string{"electionId"}},
		{use: "status <election-id>", short: "Report whether you have voted", method: rpc.HasVoted, args: []string{"electionId"}},
		{use: "receipt <election-id>", short: "Show your vote receipt", method: rpc.GetReceipt, args: []string{"electionId"}},
		{use: "verify <vote-id> <hash>", short: "Check a receipt hash", method: rpc.VerifyVote, args: []string{"voteId", "voteHash"}},
		{use: "invalidate <vote-id>", short: "Invalidate a vote", method: rpc.InvalidateVote, args: []string{"voteId"},
			fields: []field{required("reason", "reason", "why the vote is invalid")}},
		{use: "stats <election-id>", short: "Show turnout statistics", method: rpc.VotingStatistics, args: []string{"electionId"}},
		{use: "count <election-id>", short: "Count valid votes in an election", method: rpc.ElectionVoteCount, args: []string{"electionId"}},
		{use: "candidate-count <candidate-id>", short: "Count valid votes for a candidate", method: rpc.CandidateVoteCount, args: []string{"candidateId"}},
		{use: "audit <election-id>", short: "List every vote of an election", method: rpc.AuditVotes, args: []string{"electionId"}},
	}},
	{use: "results", short: "Election results", calls: []call{
		{use: "get <election-id>", short: "Show results of a completed election", method: rpc.GetResults, args: []string{"electionId"}},
		{use: "url <election-id>", short: "Get a download link for archived results", method: rpc.ResultsArchiveURL, args: []string{"electionId"}},
	}},
}

func (a *App) groupCommand(g group) *cobra.Command {
	cmd := &cobra.Command{Use: g.use, Short: g.short}
	for _, c := range g.calls {
		cmd.AddCommand(a.callCommand(c))
	}
	return cmd
}

func (a *App) callCommand(c call) *cobra.Command {
	argsCheck := cobra.ExactArgs(len(c.args))
	if c.optionalArgs {
		argsCheck = cobra.RangeArgs(0, len(c.args))
	}

	texts := make(map[string]*string, len(c.fields))
	bools := make(map[string]*bool, len(c.fields))

	cmd := &cobra.Command{
		Use:   c.use,
		Short: c.short,
		Args:  argsCheck,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := make(map[string]any, len(args)+len(c.fields))
			for i, v := range args {
				in[c.args[i]] = v
			}
			for _, f := range c.fields {
				if !cmd.Flags().Changed(f.flag) {
					continue
				}
				switch f.kind {
				case boolFlag:
					in[f.key] = *bools[f.flag]
				default:
					in[f.key] = *texts[f.flag]
				}
			}

			resp, err := a.client.Call(cmd.Context(), c.method, in)
			if err != nil {
				return err
			}
			return a.print(resp)
		},
	}

	for _, f := range c.fields {
		switch f.kind {
		case boolFlag:
			bools[f.flag] = cmd.Flags().Bool(f.flag, false, f.usage)
		default:
			texts[f.flag] = cmd.Flags().String(f.flag, "", f.usage)
		}
		if f.required {
			_ = cmd.MarkFlagRequired(f.flag)
		}
	}
	return cmd
}

var printOptions = protojson.MarshalOptions{Multiline: true, Indent: "  "}

func (a *App) print(resp *structpb.Struct) error {
	b, err := printOptions.Marshal(resp)
	if err != nil {
		return fmt.Errorf("format response: %w", err)
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}
