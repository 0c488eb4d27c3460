package status

// waitingFormat is displayed until the session starts.
const waitingFormat = `
<h3>Mount Point %s</h3>
<p>not connected</p>
`

// reportFormat defines the HTML structure of the report.
const reportFormat = `
<h3>Mount Point %s</h3>
<pre>
<code>
<div class="preformatted" id='relay'>
ticks %d
bytes relayed %d
last data %s
position reports sent %d
position report errors %d
</div>
</code>
</pre>
<h3>RTCM Frames</h3>
<pre>
<code>
<div class="preformatted" id='frames'>
%s
</div>
</code>
<code>
<div class="preformatted" id='messages'>
%s
</div>
</code>
</pre>
`
