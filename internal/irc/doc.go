// Package irc drives the protocol core over a socket.
//
// A Session turns lines into events on its bus; a Client owns the socket
// and runs the Session on one goroutine.
package irc

/*
Event Summary:

Connection Hooks (class "hooks"):
- connected: socket is up. CAP holds it back until negotiation ends,
  then raises it again for the registration handshake
- disconnected: socket closed; extensions reset per-connection state
- extension_post: extensions were (re)loaded
- case_change: ISUPPORT changed the server's CASEMAPPING

Inbound Lines (class "commands"):
- Named by lower-cased command or numeric, payload *line.Line
- PING: answered with PONG (basicrfc)
- 001 (RPL_WELCOME): marks the session registered; starts lag
  checks and autojoin
- 005 (RPL_ISUPPORT): merged into the isupport table
- 376/422 (End of MOTD / MOTD missing): services login
  - Identifies to NickServ unless SASL succeeded
  - OPERs up
  - Sets configured user modes
  - Recovers the primary nick with GHOST or RELEASE
- 432/433/436/437 before registration: altnick tries the alternate,
  then appends underscores
- KICK, or a PART we did not send: kickrejoin joins again after a delay

Outbound Lines (class "commands_out"):
- Every line sent goes through here first; Cancel drops it

Any of these may set StatusTerminateSoon; the session then sends QUIT.

Extension Classes:
- commands_cap: CAP sub-commands (ls, ack, nak, list, new, del)
- cap_perform: acknowledged caps; STARTTLS and SASL pause the
  event until their exchange is over
- commands_ctcp / commands_nctcp: CTCP requests and replies
- modes: one event per mode change (mode_prefix, mode_list, ...)
*/
