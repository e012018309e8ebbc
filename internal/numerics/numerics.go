// Package numerics maps IRC numeric reply codes to the names daemons use
// for them. Several daemons disagree on names, so a code can have more than
// one; match on the code, not the name.
package numerics

import "sort"

// Codes the core and its extensions match on.
const (
	RPL_WELCOME         = "001"
	RPL_ISUPPORT        = "005"
	RPL_CHANNELMODEIS   = "324"
	RPL_WHOREPLY        = "352"
	RPL_NAMREPLY        = "353"
	RPL_ENDOFNAMES      = "366"
	RPL_BANLIST         = "367"
	RPL_MOTD            = "372"
	RPL_ENDOFMOTD       = "376"
	RPL_UMODEIS         = "221"
	RPL_INVITELIST      = "346"
	RPL_EXCEPTLIST      = "348"
	ERR_UNKNOWNCOMMAND  = "421"
	ERR_NOMOTD          = "422"
	ERR_NONICKNAMEGIVEN = "431"
	ERR_ERRONEUSNICK    = "432"
	ERR_NICKNAMEINUSE   = "433"
	ERR_NICKCOLLISION   = "436"
	ERR_UNAVAILRESOURCE = "437"
	ERR_INVALIDCAPCMD   = "410"
	RPL_STARTTLS        = "670"
	ERR_STARTTLS        = "691"
	RPL_LOGGEDIN        = "900"
	RPL_LOGGEDOUT       = "901"
	ERR_NICKLOCKED      = "902"
	RPL_SASLSUCCESS     = "903"
	ERR_SASLFAIL        = "904"
	ERR_SASLTOOLONG     = "905"
	ERR_SASLABORTED     = "906"
	ERR_SASLALREADY     = "907"
	RPL_SASLMECHS       = "908"
)

var aliases = map[string][]string{
	"001": {"RPL_WELCOME"},
	"002": {"RPL_YOURHOST", "RPL_YOURHOSTIS"},
	"003": {"RPL_CREATED", "RPL_SERVERCREATED"},
	"004": {"RPL_MYINFO", "RPL_SERVERVERSION"},
	"005": {"RPL_BOUNCE_RFC2812", "RPL_ISUPPORT"},
	"010": {"RPL_BOUNCE", "RPL_REDIR"},
	"020": {"RPL_HELLO"},
	"221": {"RPL_UMODEIS"},
	"251": {"RPL_LUSERCLIENT"},
	"252": {"RPL_LUSEROP"},
	"253": {"RPL_LUSERUNKNOWN"},
	"254": {"RPL_LUSERCHANNELS"},
	"255": {"RPL_LUSERME"},
	"265": {"RPL_LOCALUSERS"},
	"266": {"RPL_GLOBALUSERS"},
	"301": {"RPL_AWAY"},
	"305": {"RPL_UNAWAY"},
	"306": {"RPL_NOWAWAY"},
	"311": {"RPL_WHOISUSER"},
	"312": {"RPL_WHOISSERVER"},
	"313": {"RPL_WHOISOPERATOR"},
	"314": {"RPL_WHOWASUSER"},
	"315": {"RPL_ENDOFWHO"},
	"317": {"RPL_WHOISIDLE"},
	"318": {"RPL_ENDOFWHOIS"},
	"319": {"RPL_WHOISCHANNELS"},
	"324": {"RPL_CHANNELMODEIS"},
	"329": {"RPL_CHANNELCREATED", "RPL_CREATIONTIME"},
	"330": {"RPL_WHOISACCOUNT", "RPL_WHOISLOGGEDIN"},
	"331": {"RPL_NOTOPIC", "RPL_NOTOPICSET"},
	"332": {"RPL_TOPIC"},
	"333": {"RPL_TOPICTIME", "RPL_TOPICWHOTIME", "RPL_TOPIC_WHO_TIME"},
	"341": {"RPL_INVITING"},
	"346": {"RPL_INVEXLIST", "RPL_INVITELIST"},
	"347": {"RPL_ENDOFINVEXLIST", "RPL_ENDOFINVITELIST"},
	"348": {"RPL_EXCEPTLIST", "RPL_EXEMPTLIST", "RPL_EXLIST"},
	"349": {"RPL_ENDOFEXCEPTLIST", "RPL_ENDOFEXEMPTLIST", "RPL_ENDOFEXLIST"},
	"352": {"RPL_WHOREPLY"},
	"353": {"RPL_NAMREPLY"},
	"354": {"RPL_RWHOREPLY", "RPL_WHOSPCRPL"},
	"366": {"RPL_ENDOFNAMES"},
	"367": {"RPL_BANLIST"},
	"368": {"RPL_ENDOFBANLIST"},
	"372": {"RPL_MOTD"},
	"375": {"RPL_MOTDSTART"},
	"376": {"RPL_ENDOFMOTD"},
	"381": {"RPL_YOUAREOPER", "RPL_YOUREOPER"},
	"396": {"RPL_HOSTHIDDEN", "RPL_VISIBLEHOST", "RPL_YOURDISPLAYEDHOST"},
	"401": {"ERR_NOSUCHNICK"},
	"403": {"ERR_NOSUCHCHANNEL"},
	"404": {"ERR_CANNOTSENDTOCHAN"},
	"410": {"ERR_INVALIDCAPCMD", "ERR_INVALIDCAPSUBCOMMAND", "ERR_UNKNOWNCAPCMD"},
	"421": {"ERR_UNKNOWNCOMMAND"},
	"422": {"ERR_NOMOTD"},
	"431": {"ERR_NONICKNAMEGIVEN"},
	"432": {"ERR_ERRONEOUSNICKNAME", "ERR_ERRONEUSNICKNAME"},
	"433": {"ERR_NICKNAMEINUSE"},
	"436": {"ERR_NICKCOLLISION"},
	"437": {"ERR_BANNICKCHANGE", "ERR_UNAVAILRESOURCE"},
	"442": {"ERR_NOTONCHANNEL"},
	"451": {"ERR_NOTREGISTERED"},
	"461": {"ERR_NEEDMOREPARAMS"},
	"462": {"ERR_ALREADYREGISTERED", "ERR_ALREADYREGISTRED"},
	"464": {"ERR_PASSWDMISMATCH"},
	"465": {"ERR_YOUREBANNEDCREEP"},
	"471": {"ERR_CHANNELISFULL"},
	"473": {"ERR_INVITEONLYCHAN"},
	"474": {"ERR_BANNEDFROMCHAN"},
	"475": {"ERR_BADCHANNELKEY"},
	"477": {"ERR_NEEDREGGEDNICK", "ERR_NOCHANMODES"},
	"482": {"ERR_CHANOPRIVSNEEDED"},
	"670": {"RPL_STARTTLS"},
	"691": {"ERR_STARTTLS"},
	"730": {"RPL_MONONLINE"},
	"731": {"RPL_MONOFFLINE"},
	"900": {"RPL_LOGGEDIN"},
	"901": {"RPL_LOGGEDOUT"},
	"902": {"ERR_NICKLOCKED"},
	"903": {"RPL_SASLSUCCESS"},
	"904": {"ERR_SASLFAIL"},
	"905": {"ERR_SASLTOOLONG"},
	"906": {"ERR_SASLABORTED"},
	"907": {"ERR_SASLALREADY"},
	"908": {"RPL_SASLMECHS"},
}

var byName map[string]string

func init() {
	byName = make(map[string]string)
	for code, names := range aliases {
		for _, name := range names {
			byName[name] = code
		}
	}
}

// Aliases returns every known name for a code, sorted. It returns nil for
// codes not in the table.
func Aliases(code string) []string {
	names := aliases[code]
	if names == nil {
		return nil
	}
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}

// Lookup returns the code for a name such as "RPL_ENDOFMOTD".
func Lookup(name string) (string, bool) {
	code, ok := byName[name]
	return code, ok
}

// Known reports whether code is in the table.
func Known(code string) bool {
	_, ok := aliases[code]
	return ok
}

// IsNumeric reports whether command is a three-digit numeric.
func IsNumeric(command string) bool {
	if len(command) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if command[i] < '0' || command[i] > '9' {
			return false
		}
	}
	return true
}
